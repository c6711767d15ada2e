package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseCommand_TextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.txt")
	input := "How would you rate our library?\n- Excellent\n- Good\nWhat is your email address?\n"
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "", "parse", path, "--show-excluded", "--log-level", "error")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var got struct {
		Questions []struct {
			Text    string   `json:"text"`
			Type    string   `json:"type"`
			Options []string `json:"options"`
		} `json:"questions"`
		TotalFound  int `json:"totalFound"`
		FilteredOut int `json:"filteredOut"`
		Analysis    struct {
			RecommendedCount int `json:"recommendedCount"`
		} `json:"analysis"`
		Excluded []struct {
			Text string `json:"text"`
		} `json:"excluded"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got.Questions) != 1 || got.Questions[0].Type != "multiple_choice" {
		t.Fatalf("unexpected questions %+v", got.Questions)
	}
	if got.TotalFound != 2 || got.FilteredOut != 1 || len(got.Excluded) != 1 {
		t.Errorf("unexpected counters: found=%d filtered=%d excluded=%d", got.TotalFound, got.FilteredOut, len(got.Excluded))
	}
	if got.Analysis.RecommendedCount == 0 {
		t.Error("expected a recommended count")
	}
}

func TestParseCommand_Stdin(t *testing.T) {
	page := `<html><script>var FB_PUBLIC_LOAD_DATA_ = [null,[["Please describe any improvements you would like to see on campus.","paragraph",null,[],[]]]];</script></html>`
	out, err := runCLI(t, page, "parse", "-", "--compact")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, `"type":"long_answer"`) {
		t.Errorf("expected a long answer question, got %s", out)
	}
}

func TestParseCommand_NoQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := runCLI(t, "", "parse", path)
	if err == nil || !strings.Contains(err.Error(), "manually") {
		t.Errorf("expected a manual-input hint, got %v", err)
	}
}

func TestParseCommand_UnsupportedFile(t *testing.T) {
	if _, err := runCLI(t, "", "parse", "form.odt"); err == nil {
		t.Error("expected an error for .odt input")
	}
}

func TestGenerateCommand_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("FORMGEST_GEMINI_API_KEY", "")
	_, err := runCLI(t, "", "generate", "form.txt")
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
}
