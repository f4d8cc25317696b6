package loaders

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const testFactsYAML = `project: vitamins
facts:
  - id: f1
    text: Adults need 600 IU of vitamin D daily.
    quote: intake should be 600 IU
    source: https://example.org/vitd
    start_raw: 10
    end_raw: 33
  - id: f2
    text: Calcium intake matters too.
    quote: calcium 1000 mg
    source: https://example.org/calcium
`

func writeFactsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFactsFile(t *testing.T) {
	path := writeFactsFile(t, testFactsYAML)

	facts, err := LoadFactsFile(path, NewWebLoader())
	if err != nil {
		t.Fatalf("LoadFactsFile: %v", err)
	}

	if facts.Project() != "vitamins" {
		t.Errorf("project = %q", facts.Project())
	}
	ids := facts.FactIDs()
	if len(ids) != 2 || ids[0] != "f1" || ids[1] != "f2" {
		t.Errorf("fact IDs = %v", ids)
	}

	ev, err := facts.FetchFactEvidence(context.Background(), "vitamins", "f1")
	if err != nil {
		t.Fatalf("FetchFactEvidence: %v", err)
	}
	if ev.QuoteTextRaw != "intake should be 600 IU" {
		t.Errorf("quote = %q", ev.QuoteTextRaw)
	}
	if ev.StartRaw == nil || *ev.StartRaw != 10 {
		t.Errorf("start_raw = %v", ev.StartRaw)
	}
	if src := ev.PrimarySource(); src == nil || src.URL != "https://example.org/vitd" {
		t.Errorf("source = %+v", src)
	}
}

func TestLoadFactsFileRejectsBadIDs(t *testing.T) {
	for name, yaml := range map[string]string{
		"missing id":   "facts:\n  - text: no id here\n",
		"duplicate id": "facts:\n  - id: a\n  - id: a\n",
	} {
		if _, err := LoadFactsFile(writeFactsFile(t, yaml), NewWebLoader()); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestFactsFileUnknownFact(t *testing.T) {
	facts, err := LoadFactsFile(writeFactsFile(t, testFactsYAML), NewWebLoader())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := facts.FetchFactEvidence(context.Background(), "vitamins", "nope"); err == nil {
		t.Error("expected an error for an unknown fact")
	}
}

func TestFactsFileCaptureExcerptPersists(t *testing.T) {
	path := writeFactsFile(t, testFactsYAML)
	facts, err := LoadFactsFile(path, NewWebLoader())
	if err != nil {
		t.Fatal(err)
	}

	err = facts.CaptureExcerpt(context.Background(), "vitamins", "f2", "", "markdown", 5, 20)
	if err != nil {
		t.Fatalf("CaptureExcerpt: %v", err)
	}

	// the write-back must survive a reload
	reloaded, err := LoadFactsFile(path, NewWebLoader())
	if err != nil {
		t.Fatal(err)
	}
	ev, err := reloaded.FetchFactEvidence(context.Background(), "vitamins", "f2")
	if err != nil {
		t.Fatal(err)
	}
	if ev.StartMD == nil || *ev.StartMD != 5 || ev.EndMD == nil || *ev.EndMD != 20 {
		t.Errorf("markdown offsets = %v, %v, want 5, 20", ev.StartMD, ev.EndMD)
	}
}
