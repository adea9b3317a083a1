// Command markovpfsim is a minimal demo driver for the markovpf
// library. It is deliberately NOT the test pattern generator or the
// CLI/driver harness spec.md places out of scope for the core: it
// synthesises nothing. It reads a pre-built address list (one file, or
// stdin) and replays it through a Prefetcher, logging one line per
// PrefetchEvent. Building sequential/strided/interleaved/random/repeated
// address streams stays the caller's job.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/openhw-labs/markovpf"
)

func main() {
	app := &cli.App{
		Name:  "markovpfsim",
		Usage: "replay an address trace through the Markov prefetcher",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input",
				Usage: "path to a whitespace/comma-separated address list (default: stdin)",
			},
			&cli.IntFlag{Name: "n", Value: 32, Usage: "address space size N"},
			&cli.IntFlag{Name: "w", Value: 5, Usage: "access history window size W"},
			&cli.UintFlag{Name: "b", Value: 8, Usage: "transition-table counter width B (bits)"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level label, recorded in the startup log line only; output is not filtered by it"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("markovpfsim failed", "err", err)
	}
}

func run(c *cli.Context) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandler(os.Stderr, true)))
	log.Info("starting markovpfsim", "log-level", c.String("log-level"))

	pf, err := markovpf.New(markovpf.Config{
		N: c.Int("n"),
		W: c.Int("w"),
		B: uint(c.Uint("b")),
	})
	if err != nil {
		return fmt.Errorf("markovpfsim: %w", err)
	}

	var r io.Reader = os.Stdin
	if path := c.String("input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("markovpfsim: open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	addrs, err := readAddresses(r)
	if err != nil {
		return fmt.Errorf("markovpfsim: %w", err)
	}

	for _, addr := range addrs {
		ev := pf.Reference(addr)
		log.Info("reference", "event", ev.String())
	}
	log.Info("done", "references", len(addrs), "saturations", pf.TransitionSaturations())
	return nil
}

// readAddresses parses whitespace- and comma-separated unsigned integers
// from r. It performs no synthesis of its own; the caller supplies the
// full sequence.
func readAddresses(r io.Reader) ([]uint32, error) {
	var out []uint32
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		for _, field := range strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			if field == "" {
				continue
			}
			v, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("parse address %q: %w", field, err)
			}
			out = append(out, uint32(v))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
