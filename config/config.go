// Package config loads Markov prefetcher parameters from a TOML file,
// in the same shape go-ethereum-family nodes load their configuration:
// decode a struct with github.com/naoina/toml, wrap decode failures with
// github.com/pkg/errors so the caller gets a stack trace at the
// construction boundary.
package config

import (
	"io"
	"os"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/openhw-labs/markovpf"
)

// Config holds everything needed to construct and operate a Prefetcher
// outside the core library: the prefetcher parameters themselves, plus
// the ambient concerns (log level, metrics listener) the core has no
// opinion about.
type Config struct {
	N int `toml:"n"`
	W int `toml:"w"`
	B uint `toml:"b"`

	LogLevel    string `toml:"log_level"`
	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the spec's reference parameters (N=32, W=5, B=8) with
// an info log level and metrics disabled.
func Default() Config {
	def := markovpf.DefaultConfig()
	return Config{
		N:        def.N,
		W:        def.W,
		B:        def.B,
		LogLevel: "info",
	}
}

// Prefetcher extracts the markovpf.Config subset of this configuration.
func (c Config) Prefetcher() markovpf.Config {
	return markovpf.Config{N: c.N, W: c.W, B: c.B}
}

// Load reads and decodes a TOML configuration file, starting from
// Default() so an incomplete file still yields sane ambient settings.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads and decodes TOML configuration from r.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: decode toml")
	}
	if err := cfg.Prefetcher().Validate(); err != nil {
		return Config{}, errors.Wrap(err, "config: invalid prefetcher parameters")
	}
	return cfg, nil
}
