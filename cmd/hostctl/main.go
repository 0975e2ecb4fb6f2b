package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/readyctl/internal/action"
	"github.com/danmuck/readyctl/internal/actor"
	"github.com/danmuck/readyctl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hostctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "hostctl",
		Short:         "Host actor: signals ready and performs the action on trigger",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(strings.TrimSpace(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "host.toml", "path to host TOML config (created with defaults if missing)")
	return cmd
}

func run(configPath string) error {
	fd := int(os.Stdin.Fd())
	raw := term.IsTerminal(fd)
	var logOut io.Writer = os.Stderr
	if raw {
		state, err := term.MakeRaw(fd)
		if err != nil {
			raw = false
		} else {
			defer term.Restore(fd, state)
			logOut = crlfWriter{w: os.Stderr}
		}
	}
	observability.InitLoggerOutput("hostctl", logOut)

	cfg, err := loadOrCreateHostConfig(configPath)
	if err != nil {
		return err
	}
	driver := action.NewLogDriver(log.Logger, action.Point{})
	host, err := actor.NewHost(cfg, driver, actor.LogState)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	con := newConsole(host, configPath, stop)
	if raw {
		go con.runRaw(ctx, os.Stdin)
	} else {
		go con.runLines(ctx, os.Stdin)
	}
	log.Info().
		Str("url", host.Client().URL()).
		Str("mode", string(cfg.Mode)).
		Dur("capture_delay", cfg.CaptureDelay).
		Msg("starting host")
	err = host.Run(ctx)
	con.wait()
	return err
}

// crlfWriter restores carriage returns a raw-mode terminal no longer adds.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write([]byte(strings.ReplaceAll(string(p), "\n", "\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
