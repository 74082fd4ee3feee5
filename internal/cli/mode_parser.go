package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeAPI  = "api-service"
	ModeFeed = "feed-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeAPI, "api", "a":
		return ModeAPI, true
	case ModeFeed, "feed", "f":
		return ModeFeed, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `api-service --max-concurrent=150`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  ./fletea --mode=<service> [flags]

Services (modes):
  api-service      HTTP API for quotes, trips, availability and ratings
  feed-service     Realtime gateway pushing trip status updates over WebSocket

Examples:
  ./fletea --mode=api-service --max-concurrent=150
  ./fletea --mode=feed-service --prefetch=8

Run "./fletea <mode> --help" for mode-specific flags.`)
}

// AttachUsage wires a per-mode usage message into a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage of %s:\n", mode)
		fs.PrintDefaults()
	}
}
