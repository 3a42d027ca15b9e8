package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"aitexgen/internal/config"
	"aitexgen/internal/orchestrator"
	providerfactory "aitexgen/internal/provider/factory"
	"aitexgen/internal/server"
)

const serveUsage = `Usage:
  aitexgen serve [--config <path>] [--port <port>]

Provider API keys are read from the environment (or a .env file):
  GROQ_API_KEY, GEMINI_API_KEY, OPENROUTER_API_KEY, TOGETHER_API_KEY,
  MISTRAL_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY

Flags:
  --config string   Path to optional YAML configuration file
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	registry, err := providerfactory.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Warn("closing providers", "error", err)
		}
	}()

	orch, err := orchestrator.New(registry, orchestrator.Config{
		Timeout:   cfg.Timeout(),
		CacheSize: cfg.Cache.Size,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, orch, registry)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
