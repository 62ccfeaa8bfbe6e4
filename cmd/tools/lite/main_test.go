package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kapu/pulse-kit-go/internal/domain"
)

func TestReadSnippetsSkipsBlankLines(t *testing.T) {
	snippets, err := readSnippets(strings.NewReader("one\n\n  two  \n\t\nthree\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snippets) != 3 || snippets[1] != "two" {
		t.Fatalf("unexpected snippets %v", snippets)
	}
}

func TestReadSnippetsStopsAtLimit(t *testing.T) {
	snippets, _ := readSnippets(strings.NewReader(strings.Repeat("line\n", 40)))
	if len(snippets) != 30 {
		t.Fatalf("expected 30 snippets, got %d", len(snippets))
	}
}

func TestLiteCommandPrintsIdeas(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("Onboarding is slow\nPricing page confuses people\n"))
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp domain.IdeasResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid output: %v", err)
	}
	if len(resp.Ideas) < 5 || len(resp.Ideas) > 6 {
		t.Fatalf("expected 5..6 ideas, got %d", len(resp.Ideas))
	}
}
