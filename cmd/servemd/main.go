package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/servemd/internal"
	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/converter"
	pkgconfig "github.com/starford/servemd/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(path),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithConfigPath(path)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// withLog opens the configured access log for the duration of fn.
func withLog(cmd *cli.Command, fn func(*accesslog.Store) error) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := accesslog.Open(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer log.Close()
	return fn(log)
}

// output is the writer of the root command, stdout unless a test replaced it.
func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func logStats(ctx context.Context, cmd *cli.Command) error {
	return withLog(cmd, func(log *accesslog.Store) error {
		stats, err := log.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(output(cmd), stats)
	})
}

func logList(ctx context.Context, cmd *cli.Command) error {
	return withLog(cmd, func(log *accesslog.Store) error {
		page, err := log.Query(ctx, int(cmd.Int("per-page")), int(cmd.Int("page")), cmd.String("bot"))
		if err != nil {
			return err
		}
		return printJSON(output(cmd), page)
	})
}

func logClear(ctx context.Context, cmd *cli.Command) error {
	return withLog(cmd, func(log *accesslog.Store) error {
		if err := log.Clear(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(output(cmd), "access log cleared")
		return err
	})
}

func convert(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("convert: an HTML file (or - for stdin) is required")
	}
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return fmt.Errorf("convert: read %s: %w", name, err)
	}
	_, err = io.WriteString(output(cmd), converter.Convert(string(data), cmd.String("title")))
	return err
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:   "servemd",
		Usage:  "Serve site content as Markdown to AI crawlers and log who fetches it",
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
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: serveMCP,
			},
			{
				Name:  "log",
				Usage: "Inspect or clear the access log",
				Commands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Print total, today and per-bot counts",
						Action: logStats,
					},
					{
						Name:  "list",
						Usage: "Print access log entries, newest first",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
							&cli.IntFlag{Name: "per-page", Value: 30, Usage: "Entries per page"},
							&cli.StringFlag{Name: "bot", Usage: "Only entries for this bot name"},
						},
						Action: logList,
					},
					{
						Name:   "clear",
						Usage:  "Delete every access log entry",
						Action: logClear,
					},
				},
			},
			{
				Name:      "convert",
				Usage:     "Convert an HTML file to Markdown",
				ArgsUsage: "<file.html|->",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Document title"},
				},
				Action: convert,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
