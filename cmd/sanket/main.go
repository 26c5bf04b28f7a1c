// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/sanket"
	"github.com/poiesic/sanket/config"
	"github.com/poiesic/sanket/core"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sanket",
		Usage: "Question answering over DGMS mine accident bulletins",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (searches sanket.yaml, config.yaml, ~/.config/sanket, /etc/sanket when empty)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file loaded before reading config",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnv(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Poll the publisher and keep the index current until interrupted",
				Action: serveCommand,
			},
			{
				Name:   "update",
				Usage:  "Run one update cycle now",
				Action: updateCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Reprocess the latest document even if it has not changed",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the active index",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to retrieve (0 uses the configured default)",
					},
					&cli.StringFlag{
						Name:  "namespace",
						Usage: "Query a specific index namespace instead of the active one",
					},
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Print the evidence used for the answer",
						Value: true,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show the active index and processed versions",
				Action: statusCommand,
			},
		},
	}
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func openService(ctx context.Context, c *cli.Context, opts ...sanket.Option) (*sanket.Service, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	return sanket.New(ctx, cfg, opts...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Start(ctx); err != nil {
		return err
	}
	slog.Info("serving; press Ctrl-C to stop")
	<-ctx.Done()
	svc.Stop()
	slog.Info("shut down")
	return nil
}

func updateCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	monitor := newConsoleMonitor(os.Stderr)
	svc, err := openService(ctx, c, sanket.WithCycleMonitor(monitor))
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Update(ctx, c.Bool("force"))
	if report == nil {
		return err
	}
	printReport(os.Stdout, report)
	return err
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}

	ctx, stop := signalContext()
	defer stop()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	resp, err := svc.Query(ctx, question, c.Int("top-k"), core.Namespace(c.String("namespace")))
	if errors.Is(err, core.ErrNoActiveNamespace) {
		return errors.New("no index yet; run `sanket update` first")
	}
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	if c.Bool("sources") && len(resp.Evidence.Hits) > 0 {
		color.Cyan("\nSources (%s):", resp.Evidence.Namespace)
		for _, hit := range resp.Evidence.Hits {
			fmt.Printf("  %.3f  %s\n", hit.Score, hit.Chunk.Provenance)
		}
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	status, err := svc.IndexStatus(ctx)
	if err != nil {
		return err
	}
	history, err := svc.VersionHistory(ctx)
	if err != nil {
		return err
	}

	active := string(status.ActiveNamespace)
	if active == "" {
		active = color.YellowString("none")
	}
	fmt.Printf("Active namespace: %s\n", active)
	if !status.LastUpdateTime.IsZero() {
		fmt.Printf("Last update:      %s\n", status.LastUpdateTime.Local().Format(time.RFC1123))
	}
	fmt.Printf("Last skip rate:   %.1f%%\n", status.LastSkipRate*100)

	if len(history) == 0 {
		return nil
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tOUTCOME\tRECORDS\tSKIPPED\tCHUNKS\tNAMESPACE\tCOMPLETED")
	for _, m := range history {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			m.Version, m.Outcome, m.Records, m.Skipped, m.Chunks, m.Namespace,
			m.CompletedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
