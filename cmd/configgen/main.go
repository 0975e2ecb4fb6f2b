package main

import (
	"fmt"
	"os"

	"github.com/danmuck/readyctl/internal/config"
	"github.com/danmuck/readyctl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	observability.InitLogger("configgen")
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "configgen",
		Short:         "Write and validate readyctl config files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTemplateCmd(), newValidateCmd())
	return root
}

func newTemplateCmd() *cobra.Command {
	var (
		kind   string
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a config template",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			target := output
			if target == "" {
				target = defaultPath(kind)
			}
			if err := config.WriteTemplate(target, kind, force); err != nil {
				return err
			}
			log.Info().Str("kind", kind).Str("path", target).Msg("wrote config template")
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", config.KindCoordinator, "config kind: coordinator|host|participant")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (defaults to <kind>.toml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Strictly validate a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := defaultPath(kind)
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Validate(path, kind); err != nil {
				return err
			}
			log.Info().Str("kind", kind).Str("path", path).Msg("config valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", config.KindCoordinator, "config kind: coordinator|host|participant")
	return cmd
}

func defaultPath(kind string) string {
	return kind + ".toml"
}
