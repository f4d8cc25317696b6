package loaders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResearchAPIFetchFactEvidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/proj/facts/f1/evidence" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		start, end := 10, 33
		json.NewEncoder(w).Encode(map[string]any{
			"fact_id":                 "f1",
			"quote_text_raw":          "intake should be 600 IU",
			"evidence_start_char_raw": start,
			"evidence_end_char_raw":   end,
			"sources": []map[string]string{
				{"url": "https://example.org/vitd", "domain": "example.org"},
			},
		})
	}))
	defer srv.Close()

	api := NewResearchAPI(srv.URL, "tok")
	ev, err := api.FetchFactEvidence(context.Background(), "proj", "f1")
	if err != nil {
		t.Fatalf("FetchFactEvidence: %v", err)
	}
	if ev.QuoteTextRaw != "intake should be 600 IU" {
		t.Errorf("quote = %q", ev.QuoteTextRaw)
	}
	if ev.StartRaw == nil || *ev.StartRaw != 10 || ev.EndRaw == nil || *ev.EndRaw != 33 {
		t.Errorf("offsets = %v, %v", ev.StartRaw, ev.EndRaw)
	}
	src := ev.PrimarySource()
	if src == nil || src.URL != "https://example.org/vitd" {
		t.Errorf("primary source = %+v", src)
	}
}

func TestResearchAPIFetchSourceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/proj/content" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("url") != "https://example.org/vitd" || q.Get("mode") != "auto" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"text_content":     "raw text",
			"markdown_content": "## Reader",
		})
	}))
	defer srv.Close()

	api := NewResearchAPI(srv.URL, "")
	content, err := api.FetchSourceContent(context.Background(), "proj", "https://example.org/vitd", "auto")
	if err != nil {
		t.Fatalf("FetchSourceContent: %v", err)
	}
	if content.Text != "raw text" || content.Markdown != "## Reader" {
		t.Errorf("content = %+v", content)
	}
	if content.SourceURL != "https://example.org/vitd" || content.ProjectID != "proj" {
		t.Errorf("identity = %q %q", content.ProjectID, content.SourceURL)
	}
}

func TestResearchAPICaptureExcerpt(t *testing.T) {
	var got captureRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/api/projects/proj/facts/f1/excerpt" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	api := NewResearchAPI(srv.URL, "")
	err := api.CaptureExcerpt(context.Background(), "proj", "f1", "https://example.org/vitd", "markdown", 21, 44)
	if err != nil {
		t.Fatalf("CaptureExcerpt: %v", err)
	}
	want := captureRequest{SourceURL: "https://example.org/vitd", Format: "markdown", StartChar: 21, EndChar: 44}
	if got != want {
		t.Errorf("posted %+v, want %+v", got, want)
	}
}

func TestResearchAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such fact", http.StatusNotFound)
	}))
	defer srv.Close()

	api := NewResearchAPI(srv.URL, "")
	if _, err := api.FetchFactEvidence(context.Background(), "proj", "missing"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
