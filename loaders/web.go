package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/boolean-maybe/pinpoint/pinpoint"
)

// WebLoader fetches source documents directly from HTTP(S) URLs or local
// files, for running the evidence panel without a workspace backend.
// Remote fetches are rate limited per host and honor robots.txt.
type WebLoader struct {
	client *http.Client

	// UserAgent identifies the loader to remote servers and in robots.txt
	// group matching.
	UserAgent string

	// RespectRobots disables the robots.txt check when false.
	RespectRobots bool

	// PerHostRate is the sustained request rate allowed per host.
	PerHostRate rate.Limit

	sanitizer *bluemonday.Policy

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	robots   map[string]*robotstxt.RobotsData
}

// NewWebLoader creates a loader with a conservative default rate of one
// request per second per host.
func NewWebLoader() *WebLoader {
	return &WebLoader{
		client:        &http.Client{Timeout: 30 * time.Second},
		UserAgent:     defaultUserAgent,
		RespectRobots: true,
		PerHostRate:   rate.Limit(1),
		sanitizer:     bluemonday.UGCPolicy(),
		limiters:      make(map[string]*rate.Limiter),
		robots:        make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch retrieves target and produces all representations the loader can
// derive: sanitized HTML, extracted text, and reader-formatted markdown.
func (l *WebLoader) Fetch(ctx context.Context, projectID, target string) (*pinpoint.SourceContent, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return l.fetchRemote(ctx, projectID, target)
	}
	return l.fetchLocal(projectID, target)
}

func (l *WebLoader) fetchLocal(projectID, target string) (*pinpoint.SourceContent, error) {
	path := strings.TrimPrefix(target, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read local file: %w", err)
	}

	content := &pinpoint.SourceContent{
		ProjectID: projectID,
		SourceURL: target,
		FetchedAt: time.Now(),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		content.Markdown = string(data)
		content.Text = string(data)
	case ".html", ".htm":
		l.fillFromHTML(content, string(data))
	default:
		content.Text = string(data)
		content.Markdown = pinpoint.FormatReader(string(data))
	}
	return content, nil
}

func (l *WebLoader) fetchRemote(ctx context.Context, projectID, target string) (*pinpoint.SourceContent, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	if err := l.limiter(u.Host).Wait(ctx); err != nil {
		return nil, err
	}
	if l.RespectRobots {
		allowed, err := l.robotsAllow(ctx, u)
		if err == nil && !allowed {
			return nil, fmt.Errorf("fetch %s: disallowed by robots.txt", target)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", l.UserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	content := &pinpoint.SourceContent{
		ProjectID: projectID,
		SourceURL: target,
		FetchedAt: time.Now(),
	}

	ctype := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(ctype, "text/html"):
		l.fillFromHTML(content, string(body))
	case strings.Contains(ctype, "markdown"):
		content.Markdown = string(body)
		content.Text = string(body)
	default:
		content.Text = string(body)
		content.Markdown = pinpoint.FormatReader(string(body))
	}
	return content, nil
}

// fillFromHTML derives the text and reader representations from raw HTML.
// The HTML representation itself is sanitized before storage.
func (l *WebLoader) fillFromHTML(content *pinpoint.SourceContent, raw string) {
	content.HTML = l.sanitizer.Sanitize(raw)
	content.Text = ExtractText(raw)
	content.Markdown = pinpoint.FormatReader(content.Text)
}

func (l *WebLoader) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.PerHostRate, 1)
		l.limiters[host] = lim
	}
	return lim
}

// robotsAllow fetches and caches the host's robots.txt and tests the path
// against the loader's user agent group. Errors are treated as allow.
func (l *WebLoader) robotsAllow(ctx context.Context, u *url.URL) (bool, error) {
	l.mu.Lock()
	data, ok := l.robots[u.Host]
	l.mu.Unlock()

	if !ok {
		robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return true, err
		}
		req.Header.Set("User-Agent", l.UserAgent)

		resp, err := l.client.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		data, err = robotstxt.FromResponse(resp)
		if err != nil {
			return true, err
		}
		l.mu.Lock()
		l.robots[u.Host] = data
		l.mu.Unlock()
	}

	return data.TestAgent(u.Path, l.UserAgent), nil
}

// ExtractText walks an HTML document and returns its visible text, with
// block elements separated by newlines. Script and style content is
// skipped.
func ExtractText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var b strings.Builder
	atLineStart := true
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		case html.TextNode:
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 && !atLineStart {
					b.WriteString(" ")
				}
				b.WriteString(text)
				atLineStart = false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlockElement(n.Data) {
			b.WriteString("\n")
			if n.Data == "p" || isHeading(n.Data) {
				b.WriteString("\n")
			}
			atLineStart = true
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "tr", "table", "section", "article",
		"blockquote", "pre", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}
