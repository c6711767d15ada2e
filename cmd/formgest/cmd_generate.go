package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/formgest/internal/export"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/dgallion1/formgest/internal/parser"
	"github.com/dgallion1/formgest/internal/pipeline"
	"github.com/spf13/cobra"
)

// generateCmd parses a form and synthesizes responses for it in-process.
var generateCmd = &cobra.Command{
	Use:   "generate <url|file|->",
	Short: "Generate survey responses for a form",
	Long: `Parse a form, then ask Gemini for --count responses whose tone follows
the --positive/--neutral/--negative split (percentages totalling 100).

Requires GEMINI_API_KEY. Output goes to stdout unless --output is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.Int("count", 0, "number of responses (0 picks a count from form complexity)")
	f.Int("positive", 60, "percentage of positive responses")
	f.Int("neutral", 30, "percentage of neutral responses")
	f.Int("negative", 10, "percentage of negative responses")
	f.String("format", "json", "output format: csv, json, html, markdown")
	f.StringP("output", "o", "", "write to this file instead of stdout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireGemini(); err != nil {
		return err
	}

	flags := cmd.Flags()
	name, _ := flags.GetString("format")
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	var dist generate.Distribution
	dist.Positive, _ = flags.GetInt("positive")
	dist.Neutral, _ = flags.GetInt("neutral")
	dist.Negative, _ = flags.GetInt("negative")
	count, _ := flags.GetInt("count")

	result, err := loadForm(cmd.Context(), cfg, log, args[0], cmd.InOrStdin())
	if err == nil {
		err = parser.RequireQuestions(result)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	if count == 0 {
		count = generate.Analyze(result.Questions).RecommendedCount
	}

	job, err := pipeline.NewJob(result.Questions, dist, count, cfg.MaxResponses)
	if err != nil {
		return err
	}

	gemini, err := generate.NewGeminiClient(cmd.Context(), cfg.GeminiAPIKey, cfg.GeminiModels, log)
	if err != nil {
		return err
	}
	log.Info("generating", "questions", len(result.Questions), "responses", count, "model", gemini.Model())
	pipeline.NewWorker(gemini, log, cfg.MaxConcurrentGenerate).Process(cmd.Context(), job)

	snap := job.Snapshot()
	for _, e := range snap.Progress.Errors {
		log.Warn("response failed", "error", e)
	}
	if snap.Status == pipeline.StatusFailed {
		return fmt.Errorf("no responses generated (%d failed)", snap.Progress.ResponsesFailed)
	}

	var w io.Writer = cmd.OutOrStdout()
	if path, _ := flags.GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, format, job.Responses()); err != nil {
		return err
	}
	log.Info("done", "status", snap.Status, "responses", snap.Progress.ResponsesDone)
	return nil
}
