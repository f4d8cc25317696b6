package loaders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/boolean-maybe/pinpoint/pinpoint"
)

const (
	defaultUserAgent = "pinpoint/1.0"

	// maxBodySize caps response reads; source documents beyond this are
	// truncated rather than exhausting memory.
	maxBodySize = 16 << 20
)

// ResearchAPI talks to the research workspace backend over HTTP and
// implements pinpoint.EvidenceProvider.
type ResearchAPI struct {
	baseURL string
	token   string

	// Client is used for requests; if nil, a client with a sane timeout
	// is used.
	Client *http.Client
}

// NewResearchAPI creates a backend client. token may be empty for
// unauthenticated local backends.
func NewResearchAPI(baseURL, token string) *ResearchAPI {
	return &ResearchAPI{
		baseURL: baseURL,
		token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *ResearchAPI) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func (a *ResearchAPI) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// contentResponse is the backend's content payload.
type contentResponse struct {
	SourceURL string    `json:"source_url"`
	Text      string    `json:"text_content"`
	Markdown  string    `json:"markdown_content"`
	HTML      string    `json:"html_content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FetchSourceContent retrieves the current rendering of a source. mode is
// "text", "markdown", "html", or "auto".
func (a *ResearchAPI) FetchSourceContent(ctx context.Context, projectID, sourceURL, mode string) (*pinpoint.SourceContent, error) {
	q := url.Values{}
	q.Set("url", sourceURL)
	q.Set("mode", mode)

	var resp contentResponse
	path := fmt.Sprintf("/api/projects/%s/content", url.PathEscape(projectID))
	if err := a.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}

	return &pinpoint.SourceContent{
		ProjectID: projectID,
		SourceURL: sourceURL,
		Text:      resp.Text,
		Markdown:  resp.Markdown,
		HTML:      resp.HTML,
		FetchedAt: resp.FetchedAt,
	}, nil
}

// FetchFactEvidence retrieves the quote, stored offsets, and source list
// for a fact.
func (a *ResearchAPI) FetchFactEvidence(ctx context.Context, projectID, factID string) (*pinpoint.FactEvidence, error) {
	var ev pinpoint.FactEvidence
	path := fmt.Sprintf("/api/projects/%s/facts/%s/evidence",
		url.PathEscape(projectID), url.PathEscape(factID))
	if err := a.do(ctx, http.MethodGet, path, nil, nil, &ev); err != nil {
		return nil, err
	}
	if ev.FactID == "" {
		ev.FactID = factID
	}
	return &ev, nil
}

// captureRequest is the excerpt write-back payload.
type captureRequest struct {
	SourceURL string `json:"source_url"`
	Format    string `json:"format"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// CaptureExcerpt writes a newly chosen quote span back to the fact.
func (a *ResearchAPI) CaptureExcerpt(ctx context.Context, projectID, factID, sourceURL, format string, start, end int) error {
	path := fmt.Sprintf("/api/projects/%s/facts/%s/excerpt",
		url.PathEscape(projectID), url.PathEscape(factID))
	req := captureRequest{SourceURL: sourceURL, Format: format, StartChar: start, EndChar: end}
	return a.do(ctx, http.MethodPost, path, nil, req, nil)
}

var _ pinpoint.EvidenceProvider = (*ResearchAPI)(nil)
