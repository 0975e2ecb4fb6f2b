package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/readyctl/internal/actor"
	"github.com/danmuck/readyctl/internal/observability"
	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "participantctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		url        string
	)
	cmd := &cobra.Command{
		Use:           "participantctl",
		Short:         "Participant actor: signals ready on each line of stdin",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			observability.InitLogger("participantctl")

			cfg := actor.DefaultConfig()
			if strings.TrimSpace(configPath) != "" {
				loaded, err := loadClientConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if strings.TrimSpace(url) != "" {
				cfg.Address = strings.TrimSpace(url)
			}
			cfg.Role = protocol.RoleParticipant
			client, err := actor.NewClient(cfg, actor.HandlerFuncs{State: actor.LogState})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go readyLoop(ctx, client, os.Stdin)
			log.Info().Str("url", client.URL()).Msg("starting participant; press enter to signal ready")
			return actor.KeepConnected(ctx, client)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to participant TOML config")
	cmd.Flags().StringVar(&url, "url", "", "coordinator address (overrides config)")
	return cmd
}

// readySender is the part of actor.Client readyLoop drives.
type readySender interface {
	State() actor.State
	SendReady() error
}

// readyLoop sends ready for every input line while the affordance is enabled.
func readyLoop(ctx context.Context, client readySender, in io.Reader) int {
	sent := 0
	scanner := bufio.NewScanner(in)
	for ctx.Err() == nil && scanner.Scan() {
		if !client.State().ReadyEnabled {
			log.Info().Msg("ready unavailable: already ready or not connected")
			continue
		}
		if err := client.SendReady(); err != nil {
			if errors.Is(err, actor.ErrNotConnected) {
				log.Warn().Msg("not connected")
				continue
			}
			log.Error().Err(err).Msg("send ready")
			continue
		}
		sent++
	}
	return sent
}
