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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/manualflow"
	"github.com/poiesic/manualflow/config"
	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/pipeline"
	"github.com/poiesic/manualflow/scheduler"
)

func main() {
	app := &cli.App{
		Name:  "manualflow",
		Usage: "Service manual ingestion pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest one or more documents through the full pipeline",
				ArgsUsage: "<file> [file...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Maximum documents processed at once (0 uses the config default)",
					},
				},
			},
			{
				Name:   "process",
				Usage:  "Run pipeline stages for an existing document",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "document-id",
						Aliases:  []string{"d"},
						Usage:    "Document identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "stage",
						Usage: "Single stage to run, by name or number",
					},
					&cli.StringFlag{
						Name:  "stages",
						Usage: "Comma-separated list of stages to run",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Run every stage regardless of completion state",
					},
					&cli.BoolFlag{
						Name:  "smart",
						Usage: "Run only the stages not yet completed",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show processing status for a document",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "document-id",
						Aliases:  []string{"d"},
						Usage:    "Document identifier",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "list-stages",
						Usage: "Print per-stage completion flags",
					},
				},
			},
			{
				Name:   "stages",
				Usage:  "List every pipeline stage in execution order",
				Action: stagesCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newEngine(c *cli.Context) (*manualflow.Engine, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	return manualflow.NewEngine(cfg, manualflow.WithProgressWriter(os.Stderr))
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file argument is required")
	}

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	var schedOpts []scheduler.Option
	if n := c.Int("concurrency"); n > 0 {
		schedOpts = append(schedOpts, scheduler.WithConcurrency(n))
	}

	sched, err := engine.NewScheduler(schedOpts...)
	if err != nil {
		return err
	}
	defer sched.Release()

	batch, err := sched.ProcessBatch(context.Background(), c.Args().Slice())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processed %d files: %d successful, %d failed (%.1f%%) in %s\n",
		batch.TotalFiles, len(batch.Successful), len(batch.Failed), batch.SuccessRate(), batch.Elapsed.Round(time.Millisecond))
	for _, f := range batch.Successful {
		printRunResult(f.Path, f.Result)
	}
	for _, f := range batch.Failed {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Path, f.Err)
	}

	if len(batch.Successful) == 0 && batch.TotalFiles > 0 {
		return fmt.Errorf("every document in the batch failed")
	}
	return nil
}

func processCommand(c *cli.Context) error {
	stages, smart, err := requestedStages(c)
	if err != nil {
		return err
	}

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	docID := core.ID(c.String("document-id"))

	var result *pipeline.Result
	if smart {
		result, err = engine.Coordinator().ProcessMissing(ctx, docID)
	} else {
		result, err = engine.Coordinator().ProcessStages(ctx, docID, stages)
	}
	if err != nil {
		return err
	}

	printRunResult(string(docID), result)
	if len(result.CompletedStages) == 0 && len(result.FailedStages) > 0 {
		return fmt.Errorf("every requested stage failed")
	}
	return nil
}

// requestedStages resolves the stage selection flags. Exactly one of
// --stage, --stages, --all and --smart must be given.
func requestedStages(c *cli.Context) (stages []core.Stage, smart bool, err error) {
	given := 0
	if c.String("stage") != "" {
		given++
	}
	if c.String("stages") != "" {
		given++
	}
	if c.Bool("all") {
		given++
	}
	if c.Bool("smart") {
		given++
	}
	if given != 1 {
		return nil, false, fmt.Errorf("exactly one of --stage, --stages, --all, --smart is required")
	}

	switch {
	case c.Bool("smart"):
		return nil, true, nil
	case c.Bool("all"):
		return core.AllStages()[1:], false, nil
	case c.String("stage") != "":
		stage, err := resolveStage(c.String("stage"))
		if err != nil {
			return nil, false, err
		}
		return []core.Stage{stage}, false, nil
	default:
		for _, part := range strings.Split(c.String("stages"), ",") {
			stage, err := resolveStage(strings.TrimSpace(part))
			if err != nil {
				return nil, false, err
			}
			stages = append(stages, stage)
		}
		return stages, false, nil
	}
}

// resolveStage accepts either a canonical stage name or its 1-based
// position in the execution order.
func resolveStage(value string) (core.Stage, error) {
	if n, err := strconv.Atoi(value); err == nil {
		stage := core.Stage(n)
		if !stage.Valid() {
			return 0, fmt.Errorf("stage number %d is out of range", n)
		}
		return stage, nil
	}
	return core.ParseStage(value)
}

func statusCommand(c *cli.Context) error {
	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	docID := core.ID(c.String("document-id"))

	doc, err := engine.Store().Documents().GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}

	fmt.Printf("Document: %s\n", doc.ID)
	fmt.Printf("Filename: %s\n", doc.Filename)
	fmt.Printf("Status:   %s\n", doc.ProcessingStatus)
	if doc.Manufacturer != "" || doc.DocType != "" {
		fmt.Printf("Class:    %s / %s\n", doc.Manufacturer, doc.DocType)
	}

	status, err := engine.Tracker().StatusOf(ctx, docID)
	if err != nil {
		return fmt.Errorf("computing stage status: %w", err)
	}

	complete := 0
	for _, done := range status {
		if done {
			complete++
		}
	}
	fmt.Printf("Stages:   %d/%d complete (%.0f%%)\n",
		complete, len(status), float64(complete)/float64(len(status))*100)

	if c.Bool("list-stages") {
		for i, stage := range core.AllStages() {
			mark := " "
			if status[stage] {
				mark = "x"
			}
			fmt.Printf("  %2d. [%s] %s\n", i+1, mark, stage)
		}
	}
	return nil
}

func stagesCommand(c *cli.Context) error {
	for i, stage := range core.AllStages() {
		fmt.Printf("%2d. %s\n", i+1, stage)
	}
	return nil
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

func printRunResult(label string, result *pipeline.Result) {
	if result == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s: %s", label, result.Status)
	if result.Message != "" {
		fmt.Fprintf(os.Stderr, " (%s)", result.Message)
	}
	fmt.Fprintln(os.Stderr)
	for _, failure := range result.FailedStages {
		fmt.Fprintf(os.Stderr, "    failed %s: %s\n", failure.Stage, failure.Err)
	}
	if result.Quality != nil {
		fmt.Fprintf(os.Stderr, "    quality score %d/100", result.Quality.Score)
		if len(result.Quality.Issues) > 0 {
			fmt.Fprintf(os.Stderr, " (%s)", strings.Join(result.Quality.Issues, "; "))
		}
		fmt.Fprintln(os.Stderr)
	}
}
