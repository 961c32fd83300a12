package cmd

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/siyuan-infoblox/css-imports/pkg/analyzer"
	"github.com/siyuan-infoblox/css-imports/pkg/config"
	"github.com/siyuan-infoblox/css-imports/pkg/logging"
	"github.com/siyuan-infoblox/css-imports/pkg/version"
)

const (
	UseDescription   = "csi [flags] PATH"
	ShortDescription = "CSS imports - A tool to analyze and resolve stylesheet @import rules"
	LongDescription  = `csi is a command-line tool that analyzes the @import rules of stylesheets.

For every @import it:
1. Classifies the URL (module request, external, absolute or data URL)
2. Parses the layer, supports and media conditions
3. Resolves module requests against the filesystem and node_modules
4. Deduplicates the resulting dependencies

Legacy "/* @mpx-import '...' */" comments are treated as @import rules.

PATH can be either a single stylesheet or a directory. When a directory is specified,
all stylesheets (.css, .wxss, .less, .scss, .sass, .styl) in the directory and
subdirectories will be processed recursively.

Settings are read from flags, CSI_* environment variables and a .csi.yaml file
in the current or home directory, in that order of precedence.`
)

var (
	configPath  string
	verbosity   int
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:          UseDescription,
	Short:        ShortDescription,
	Long:         LongDescription,
	Args:         validateArgs,
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default is ./.csi.yaml, then $HOME/.csi.yaml)")
	flags.String("root-context", "", "Base directory for root-relative URLs such as /styles/base.css (default is the nearest package.json directory)")
	flags.Bool("support-absolute-url", false, "Treat http(s) URLs as module requests")
	flags.Bool("support-data-url", false, "Treat data: URLs as module requests")
	flags.StringSlice("externals", []string{}, "URLs left to the runtime; exact values or /regexp/")
	flags.Bool("css-stylesheet", false, "Report every @import as an error (constructable stylesheet output)")
	flags.Bool("strict-resolve", false, "Warn about imports that cannot be resolved")
	flags.Int("concurrency", 0, "Maximum parallel resolutions per stylesheet (0 means unlimited)")
	flags.String("format", config.FormatTable, "Report format: table, json or yaml")
	flags.StringSlice("exclude", []string{}, "Regexps of import URLs to leave untouched")
	flags.StringSlice("exclude-media", []string{}, "Regexps of media queries whose imports are left untouched")
	flags.Bool("in-place", false, "Strip resolved @import rules from the stylesheets")
	flags.Bool("diff", false, "Print the lines processing would remove")
	flags.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	flags.BoolVar(&showVersion, "version", false, "Show version information")
}

func validateArgs(cmd *cobra.Command, args []string) error {
	// If version flag is set, we don't need file arguments
	if showVersion {
		return nil
	}
	return cobra.ExactArgs(1)(cmd, args)
}

func run(cmd *cobra.Command, args []string) error {
	// Handle version flag
	if showVersion {
		info, _ := debug.ReadBuildInfo()
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().FromBuildInfo(info))
		return nil
	}

	logging.SetupLogger(verbosity)

	cfg, err := config.LoadConfig(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	log.Debug().Interface("config", cfg).Msg("Loaded configuration")

	path := args[0]

	a, err := analyzer.New(analyzer.AnalyzerConfig{
		Config: cfg,
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	return a.ProcessPath(cmd.Context(), path)
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
