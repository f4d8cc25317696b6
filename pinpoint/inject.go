package pinpoint

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// The injector wraps a located match in the zero-width evidence marker
// pair. It never mutates its input; every variant returns a new string.
// A match that cannot be wrapped without corrupting structured content is
// skipped: the caller keeps the true match confidence but renders without
// a visual highlight.

// InjectPlain wraps text[start:end] in evidence markers. Returns ok=false
// when the span is out of range.
func InjectPlain(content string, start, end int) (string, bool) {
	if start < 0 || end <= start || end > len(content) {
		return content, false
	}
	return content[:start] + EvidenceStartMarker + content[start:end] + EvidenceEndMarker + content[end:], true
}

// InjectMarkdown wraps markdown[start:end] in evidence markers, keeping
// the document renderable.
//
// The markdown is reader-formatted first (pseudo-tables become well-formed
// tables). FormatReader is idempotent, so offsets computed against
// formatted markdown are unaffected; when the input was not yet formatted
// the span is re-anchored by searching for the matched snippet in the
// formatted document. If the span straddles a syntactic boundary the
// markers cannot safely cross (table cell edges, code spans, emphasis
// delimiters), injection is skipped and ok=false is returned along with
// the formatted document.
func InjectMarkdown(markdown string, start, end int) (string, bool) {
	if start < 0 || end <= start || end > len(markdown) {
		return markdown, false
	}
	snippet := markdown[start:end]

	formatted := FormatReader(markdown)
	if formatted != markdown {
		res := ExactStrategy{}.Locate(snippet, formatted)
		if !res.Found {
			return formatted, false
		}
		start, end = res.Start, res.End
	}

	if straddlesBoundary(formatted, start, end) {
		return formatted, false
	}

	return formatted[:start] + EvidenceStartMarker + formatted[start:end] + EvidenceEndMarker + formatted[end:], true
}

// InjectBlocks re-runs a cheap case-insensitive substring search for the
// matched snippet inside each block and wraps the first hit. The global
// match location was computed against the flattened document, so block
// injection never reuses it. Returns the new blocks and whether a block
// was marked.
func InjectBlocks(blocks []Block, snippet string) ([]Block, bool) {
	snippet = strings.TrimSpace(snippet)
	out := make([]Block, len(blocks))
	copy(out, blocks)
	if snippet == "" {
		return out, false
	}

	for i, b := range out {
		res := ExactStrategy{}.Locate(snippet, b.Text)
		if !res.Found {
			continue
		}
		marked, ok := InjectPlain(b.Text, res.Start, res.End)
		if !ok {
			continue
		}
		out[i].Text = marked
		return out, true
	}
	return out, false
}

// straddlesBoundary reports whether [start, end) crosses markdown
// structure that an inline marker pair cannot span: different leaf
// blocks, a table cell edge, or an odd number of backticks or emphasis
// delimiters (the span would open or close a run it does not contain).
func straddlesBoundary(markdown string, start, end int) bool {
	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	blockStart, blockEnd := -1, -1
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || node.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := node.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		lo := lines.At(0).Start
		hi := lines.At(lines.Len() - 1).Stop
		if start >= lo && start < hi {
			blockStart = lo
			blockEnd = hi
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	// start inside no leaf block (blank region, HTML block): do not risk it
	if blockStart < 0 {
		return true
	}
	// end must land in the same block
	if end > blockEnd {
		return true
	}

	span := markdown[start:end]

	// crossing a pipe inside a table row would split the match over cells
	line := enclosingLine(markdown, start)
	if strings.HasPrefix(strings.TrimSpace(line), "|") && strings.Contains(span, "|") {
		return true
	}

	if strings.Count(span, "`")%2 == 1 {
		return true
	}
	for _, delim := range []string{"**", "__"} {
		if strings.Count(span, delim)%2 == 1 {
			return true
		}
	}
	return false
}

func enclosingLine(s string, pos int) string {
	lo := strings.LastIndexByte(s[:pos], '\n') + 1
	hi := strings.IndexByte(s[pos:], '\n')
	if hi < 0 {
		return s[lo:]
	}
	return s[lo : pos+hi]
}
