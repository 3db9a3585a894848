package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

// TestParseOptions_Defaults verifies the default config path and version switch.
// Params: testing.T for assertions.
// Returns: none.
func TestParseOptions_Defaults(t *testing.T) {
	opts, err := parseOptions(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseOptions() error: %v", err)
	}
	if opts.configPath != "graphout.toml" || opts.printVersion {
		t.Fatalf("unexpected defaults: %+v", opts)
	}

	opts, err = parseOptions([]string{"-config", "/etc/graphout.d", "-version"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseOptions() error: %v", err)
	}
	if opts.configPath != "/etc/graphout.d" || !opts.printVersion {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

// TestParseOptions_Usage verifies -h prints graphout usage and reports flag.ErrHelp.
// Params: testing.T for assertions.
// Returns: none.
func TestParseOptions_Usage(t *testing.T) {
	var out bytes.Buffer
	if _, err := parseOptions([]string{"-h"}, &out); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}

	usage := out.String()
	for _, want := range []string{"Usage: graphout", "SIGHUP", "-config", "*.toml snippets"} {
		if !strings.Contains(usage, want) {
			t.Fatalf("usage %q does not mention %q", usage, want)
		}
	}
}

// TestRelayReloads_Coalesces verifies repeated hangups collapse into one pending reload.
// Params: testing.T for assertions.
// Returns: none.
func TestRelayReloads_Coalesces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hangups := make(chan os.Signal)
	reload := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		relayReloads(ctx, hangups, reload)
		close(done)
	}()

	hangups <- syscall.SIGHUP
	hangups <- syscall.SIGHUP
	hangups <- syscall.SIGHUP

	if len(reload) != 1 {
		t.Fatalf("expected one pending reload, got %d", len(reload))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("relay did not stop")
	}
}
