package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/readyctl/internal/coordinator"
	"github.com/danmuck/readyctl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "coordinatorctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:           "coordinatorctl",
		Short:         "Ready/trigger coordinator",
		Long:          "Accepts host and participant event channels, tracks readiness, and triggers the host once both sides are ready.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			observability.InitLogger("coordinatorctl")

			cfg := coordinator.DefaultServiceConfig()
			if strings.TrimSpace(configPath) != "" {
				loaded, err := loadServiceConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if strings.TrimSpace(addr) != "" {
				cfg.ListenAddr = strings.TrimSpace(addr)
			}
			log.Info().
				Str("addr", cfg.ListenAddr).
				Dur("reset_debounce", cfg.Coordinator.ResetDebounce).
				Str("security_mode", string(cfg.Transport.SecurityMode)).
				Msg("starting coordinator")
			return coordinator.NewServiceWithConfig(cfg).Run()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to coordinator TOML config")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
