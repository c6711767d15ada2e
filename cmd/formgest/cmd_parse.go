package main

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/dgallion1/formgest/internal/parser"
	"github.com/spf13/cobra"
)

// parseCmd prints the questions of a form as JSON.
var parseCmd = &cobra.Command{
	Use:   "parse <url|file|->",
	Short: "Extract the questions of a form",
	Long: `Extract the questions of a Google Form and print them as JSON.

The input is a public viewform URL, a saved .html/.htm page, a .json payload
array, a .md/.markdown outline, a .txt list, or "-" to read HTML from stdin.
Questions that ask for personal information are filtered out; pass
--show-excluded to list them as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().Bool("compact", false, "print JSON on a single line")
	parseCmd.Flags().Bool("show-excluded", false, "include filtered questions under \"excluded\"")
}

type parseOutput struct {
	form.ParseResult
	Analysis generate.Analysis `json:"analysis"`
	Excluded []form.Question   `json:"excluded,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	result, err := loadForm(cmd.Context(), cfg, log, args[0], cmd.InOrStdin())
	if err == nil {
		err = parser.RequireQuestions(result)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w (enter the questions manually as a .txt list instead)", args[0], err)
	}

	out := parseOutput{ParseResult: result, Analysis: generate.Analyze(result.Questions)}
	if show, _ := cmd.Flags().GetBool("show-excluded"); show {
		out.Excluded = result.Excluded
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
