package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dailylog/internal"
	"github.com/starford/dailylog/internal/models"
	pkgconfig "github.com/starford/dailylog/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func logChanges(ctx context.Context, cmd *cli.Command) error {
	kind, ok := models.ParseKind(cmd.String("kind"))
	if !ok {
		return fmt.Errorf("unknown kind %q (want created or modified)", cmd.String("kind"))
	}
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one vault-relative path is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}
	outcomes, err := internal.LogChanges(ctx, kind, paths, opts...)
	for i, o := range outcomes {
		switch {
		case o.Reason != "":
			fmt.Printf("%s\t%s (%s)\n", paths[i], o.Status, o.Reason)
		default:
			fmt.Printf("%s\t%s %s\n", paths[i], o.Status, o.DiaryPath)
		}
	}
	return err
}

func main() {
	cmd := &cli.Command{
		Name:   "dailylog",
		Usage:  "Keeps a daily Markdown log of the notes created and edited in a vault",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Watch the vault and serve the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "log",
				Usage:     "Record changes to notes in today's daily log",
				ArgsUsage: "PATH...",
				Action:    logChanges,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Change kind: created or modified",
						Value:   "modified",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
