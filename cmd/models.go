package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"aitexgen/internal/config"
	"aitexgen/internal/models"
)

const modelsUsage = `Usage:
  aitexgen models [--tier <tier>] [--config <path>]

Flags:
  --tier   string   Only show models available to this subscription tier
                    (free, basic, pro, power)
  --config string   Path to optional YAML configuration file`

func listModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, modelsUsage)
	}

	var tierName string
	var cfgPath string
	fs.StringVar(&tierName, "tier", "", "filter by subscription tier")
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse models flags: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	hasFilter := tierName != ""
	var tier models.Tier
	if hasFilter {
		tier, err = models.ParseTier(tierName)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tMIN TIER\tSTATUS")
	for _, desc := range models.DefaultProviders() {
		status := "ready"
		if cfg.Credentials[desc.Name] == "" {
			status = "no key"
		}
		if cfg.Providers[desc.Name].Disabled {
			status = "disabled"
		}
		for _, m := range desc.Models {
			if hasFilter && !tier.Includes(m.MinTier) {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", desc.Name, m.ID, m.MinTier, status)
		}
	}
	return w.Flush()
}
