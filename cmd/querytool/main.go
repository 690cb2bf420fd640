// Command querytool compiles, runs and matches proximity queries from the
// command line without any of the network services.
//
// Usage:
//
//	querytool parse 'quick brown[ti] and fox'
//	querytool search --config configs/development.yaml 'index* near shard'
//	querytool match --field title='A quick brown fox' 'quick brown'
package main

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "querytool",
		Short:        "Compile, search and match proximity queries",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.Setup("querytool", level, "text")
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults are used when empty)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newParseCmd(), newSearchCmd(), newMatchCmd())
	return root
}

// loadConfig reads the config named by --config and builds its section
// registry.
func loadConfig() (*config.Config, *section.Registry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	sections, err := section.NewRegistry(cfg.Sections)
	if err != nil {
		return nil, nil, fmt.Errorf("section configuration: %w", err)
	}
	return cfg, sections, nil
}
