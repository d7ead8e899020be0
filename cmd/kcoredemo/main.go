package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/dijkstracula/go-kcore"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "kcoredemo"})

func main() {
	var (
		configPath string
		kind       string
		verbose    bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "scenario YAML file (default: built-in mutex scenario)")
	pflag.StringVarP(&kind, "kind", "k", "", "override the scenario kind from the config file (mutex|bus|mailbox)")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable kernel dispatch tracing")
	pflag.Parse()

	if verbose {
		kcore.EnableDebugLog()
	}

	cfg, err := loadScenario(configPath)
	if err != nil {
		logger.Fatal("loading scenario", "err", err)
	}
	if kind != "" {
		cfg.Kind = kind
	}

	logger.Info("running scenario", "kind", cfg.Kind, "workers", len(cfg.Workers))

	switch cfg.Kind {
	case "mutex":
		order := runMutexScenario(cfg)
		logger.Info("mutex hand-off order", "order", order)
	case "bus":
		delivered := runBusScenario(cfg)
		logger.Info("bus post delivery counts", "delivered", delivered)
	case "mailbox":
		drained := runMailboxScenario(cfg)
		logger.Info("mailbox drain order", "order", drained)
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario kind %q (want mutex, bus, or mailbox)\n", cfg.Kind)
		os.Exit(1)
	}
}
