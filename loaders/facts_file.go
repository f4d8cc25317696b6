package loaders

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/boolean-maybe/pinpoint/pinpoint"
)

// factEntry is one fact in a facts file.
type factEntry struct {
	ID       string `yaml:"id"`
	Text     string `yaml:"text"`
	Quote    string `yaml:"quote"`
	Source   string `yaml:"source"`
	StartRaw *int   `yaml:"start_raw,omitempty"`
	EndRaw   *int   `yaml:"end_raw,omitempty"`
	StartMD  *int   `yaml:"start_md,omitempty"`
	EndMD    *int   `yaml:"end_md,omitempty"`
}

type factsDoc struct {
	Project string      `yaml:"project"`
	Facts   []factEntry `yaml:"facts"`
}

// FactsFile serves fact evidence from a local YAML file and source content
// through a WebLoader, letting the evidence panel run against ad-hoc notes
// without a workspace backend. Excerpt captures are written back to the
// file.
type FactsFile struct {
	mu    sync.Mutex
	path  string
	doc   factsDoc
	byID  map[string]int
	order []string

	web *WebLoader
}

// LoadFactsFile parses path and wires content fetches through web.
func LoadFactsFile(path string, web *WebLoader) (*FactsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts file: %w", err)
	}

	var doc factsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse facts file %s: %w", path, err)
	}

	f := &FactsFile{
		path: path,
		doc:  doc,
		byID: make(map[string]int, len(doc.Facts)),
		web:  web,
	}
	for i, entry := range doc.Facts {
		if entry.ID == "" {
			return nil, fmt.Errorf("parse facts file %s: fact %d has no id", path, i)
		}
		if _, dup := f.byID[entry.ID]; dup {
			return nil, fmt.Errorf("parse facts file %s: duplicate fact id %q", path, entry.ID)
		}
		f.byID[entry.ID] = i
		f.order = append(f.order, entry.ID)
	}
	return f, nil
}

// Project returns the project name declared in the file, or "default".
func (f *FactsFile) Project() string {
	if f.doc.Project == "" {
		return "default"
	}
	return f.doc.Project
}

// FactIDs returns fact IDs in file order, for panel navigation.
func (f *FactsFile) FactIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// FetchFactEvidence serves the fact's quote and stored offsets from the
// loaded file.
func (f *FactsFile) FetchFactEvidence(_ context.Context, _ string, factID string) (*pinpoint.FactEvidence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx, ok := f.byID[factID]
	if !ok {
		return nil, fmt.Errorf("unknown fact %q", factID)
	}
	entry := f.doc.Facts[idx]

	ev := &pinpoint.FactEvidence{
		FactID:       entry.ID,
		FactText:     entry.Text,
		QuoteTextRaw: entry.Quote,
		StartRaw:     entry.StartRaw,
		EndRaw:       entry.EndRaw,
		StartMD:      entry.StartMD,
		EndMD:        entry.EndMD,
	}
	if entry.Source != "" {
		ev.Sources = []pinpoint.SourceRef{{URL: entry.Source}}
	}
	return ev, nil
}

// FetchSourceContent delegates to the web loader; mode is ignored since
// the loader derives every representation it can.
func (f *FactsFile) FetchSourceContent(ctx context.Context, projectID, sourceURL, _ string) (*pinpoint.SourceContent, error) {
	return f.web.Fetch(ctx, projectID, sourceURL)
}

// CaptureExcerpt updates the fact's stored offsets and persists the file.
// The quote text itself is left to the caller's next edit; offsets alone
// are enough for the stored-tier fast path.
func (f *FactsFile) CaptureExcerpt(_ context.Context, _ string, factID, sourceURL, format string, start, end int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx, ok := f.byID[factID]
	if !ok {
		return fmt.Errorf("unknown fact %q", factID)
	}
	entry := &f.doc.Facts[idx]
	if sourceURL != "" {
		entry.Source = sourceURL
	}
	s, e := start, end
	switch format {
	case "markdown":
		entry.StartMD, entry.EndMD = &s, &e
	default:
		entry.StartRaw, entry.EndRaw = &s, &e
	}

	data, err := yaml.Marshal(&f.doc)
	if err != nil {
		return fmt.Errorf("encode facts file: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write facts file: %w", err)
	}
	return nil
}

var _ pinpoint.EvidenceProvider = (*FactsFile)(nil)
