// Command graphout reads JSON events from configured inputs and forwards matching
// ones to a Graphite collector as plaintext metric lines.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"graphout/internal/app"
)

const exitCodeFailure = 1

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options holds parsed command-line settings.
type options struct {
	configPath   string
	printVersion bool
}

// parseOptions reads graphout flags from args.
// Params: args command-line arguments without the program name; output receives usage and parse errors.
// Returns: parsed options or flag error (flag.ErrHelp for -h).
func parseOptions(args []string, output io.Writer) (options, error) {
	var opts options

	flags := flag.NewFlagSet("graphout", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.StringVar(&opts.configPath, "config", "graphout.toml",
		"graphout TOML file, or a directory whose *.toml snippets are merged in name order")
	flags.BoolVar(&opts.printVersion, "v", false, "print version, commit and build date, then exit")
	flags.BoolVar(&opts.printVersion, "version", false, "same as -v")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: graphout [-config PATH] [-v]\n\n")
		fmt.Fprintf(flags.Output(), "Forwards JSON events to Graphite. Send SIGHUP to reload the configuration.\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// relayReloads turns SIGHUP deliveries into coalesced reload requests until ctx ends.
// Params: ctx process lifetime; hangups SIGHUP channel; reload request channel with capacity one.
// Returns: none.
func relayReloads(ctx context.Context, hangups <-chan os.Signal, reload chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hangups:
			select {
			case reload <- struct{}{}:
			default:
			}
		}
	}
}

// run wires signals to the agent runtime.
// Params: none.
// Returns: process exit code.
func run() int {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		return exitCodeFailure
	}

	if opts.printVersion {
		fmt.Printf("graphout %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hangups := make(chan os.Signal, 1)
	signal.Notify(hangups, syscall.SIGHUP)
	defer signal.Stop(hangups)

	reload := make(chan struct{}, 1)
	go relayReloads(ctx, hangups, reload)

	if err := app.Run(ctx, app.Runtime{ConfigPath: opts.configPath, Reload: reload}); err != nil {
		fmt.Fprintf(os.Stderr, "graphout: %v\n", err)
		return exitCodeFailure
	}

	return 0
}

func main() {
	os.Exit(run())
}
