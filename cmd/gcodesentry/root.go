package main

import (
	"github.com/Hara602/gcodeSentry/internal/analysis"
	"github.com/Hara602/gcodeSentry/internal/config"
	"github.com/Hara602/gcodeSentry/internal/scanner"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gcodesentry",
		Short: "Mirror G-code files from removable media into the printer's gcode directory",
		Long: `gcodesentry scans removable media mounted under a base directory and links
every printable file it finds into a per-device folder of the printer's gcode
directory, removing the links again when the medium goes away.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to TOML configuration file")

	cmd.AddCommand(
		newScanCmd(opts),
		newDaemonCmd(opts),
		newBlockCmd(opts),
		newUnblockCmd(opts),
		newBlockedCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadSettings reads the configuration and sets up logging from it.
func (o *rootOptions) loadSettings() (config.Settings, error) {
	settings, err := config.Load(o.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	sysutil.InitLogger(settings.LogLevel)
	return settings, nil
}

func newScanner(settings config.Settings) *scanner.Scanner {
	var inspector scanner.ContentInspector
	if settings.RejectBinary {
		inspector = analysis.NewTypeInspector()
	}
	return scanner.New(settings.Extensions, inspector)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("gcodesentry %s (commit: %s)\n", version, commit)
		},
	}
}
