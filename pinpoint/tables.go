package pinpoint

import (
	"regexp"
	"strings"
)

// Reader formatting turns raw extraction dumps into readable markdown:
// pseudo-tables become well-formed markdown tables (first, so table rows
// are never mistaken for headings) and likely section titles are promoted
// to headings. FormatReader is idempotent: formatting already-formatted
// markdown leaves it unchanged, which lets the injector re-apply it safely.

var (
	longSpaceRunPattern = regexp.MustCompile(`\s{4,}`)
	spaceSplitPattern   = regexp.MustCompile(`\s{3,}`)
	allCapsPattern      = regexp.MustCompile(`^[A-Z][A-Z\s\-]{2,79}$`)
	captionPattern      = regexp.MustCompile(`(?i)^(Table|Figure|Chart)\s+\d+[.:]\s*\S`)
	numberedPattern     = regexp.MustCompile(`^\d+\.`)
)

var sectionKeywords = []string{
	"introduction", "background", "overview", "summary",
	"methods", "results", "discussion", "conclusion",
	"recommendations", "sources", "references",
	"intake", "dosage", "requirements", "guidelines",
	"symptoms", "diagnosis", "treatment", "prevention",
	"side effects", "interactions", "history", "definition",
}

// FormatReader transforms raw extracted text into reader-grade markdown.
func FormatReader(text string) string {
	if text == "" {
		return ""
	}
	text = convertTables(text)
	text = promoteHeadings(text)
	return strings.TrimSpace(text)
}

// convertTables rewrites runs of pseudo-table rows ("A ||B ||C", tab
// separated, or wide-space aligned columns) as markdown tables.
func convertTables(text string) string {
	lines := strings.Split(text, "\n")
	var out []string

	for i := 0; i < len(lines); {
		if !isTableRow(strings.TrimSpace(lines[i])) {
			out = append(out, lines[i])
			i++
			continue
		}

		var rows []string
		for i < len(lines) && isTableRow(strings.TrimSpace(lines[i])) {
			rows = append(rows, strings.TrimSpace(lines[i]))
			i++
		}

		// a lone pseudo-row is left alone; a table needs header + data
		if len(rows) < 2 {
			out = append(out, rows...)
			continue
		}
		out = append(out, buildMarkdownTable(rows))
	}

	return strings.Join(out, "\n")
}

// isTableRow reports whether a line looks like a pseudo-table row.
// Well-formed markdown rows (leading pipe) are not rewritten, which is
// what makes convertTables idempotent.
func isTableRow(line string) bool {
	if line == "" || strings.HasPrefix(line, "|") {
		return false
	}
	if strings.Contains(line, "||") || strings.Contains(line, "\t") {
		return true
	}
	if len(longSpaceRunPattern.FindAllString(line, -1)) >= 2 {
		return true
	}
	return strings.Count(line, "|") >= 2
}

func splitCells(line string) []string {
	var raw []string
	switch {
	case strings.Contains(line, "||"):
		raw = strings.Split(line, "||")
	case strings.Contains(line, "\t"):
		raw = strings.Split(line, "\t")
	case strings.Contains(line, "|"):
		raw = strings.Split(line, "|")
	default:
		raw = spaceSplitPattern.Split(line, -1)
	}

	cells := make([]string, 0, len(raw))
	for _, c := range raw {
		cells = append(cells, strings.TrimSpace(c))
	}
	return cells
}

func buildMarkdownTable(rows []string) string {
	split := make([][]string, 0, len(rows))
	maxCols := 0
	for _, row := range rows {
		cells := splitCells(row)
		if len(cells) > maxCols {
			maxCols = len(cells)
		}
		split = append(split, cells)
	}
	if maxCols == 0 {
		return strings.Join(rows, "\n")
	}

	var b strings.Builder
	for i, cells := range split {
		for len(cells) < maxCols {
			cells = append(cells, "")
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")

		if i == 0 {
			b.WriteString("|")
			for c := 0; c < maxCols; c++ {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// promoteHeadings marks likely section titles as markdown headings:
// ALL-CAPS lines, "Table N:" captions, and short colon-terminated titles
// containing a known section keyword.
func promoteHeadings(text string) string {
	lines := strings.Split(text, "\n")
	var out []string

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "#") || strings.HasPrefix(stripped, "|") {
			out = append(out, line)
			continue
		}

		if allCapsPattern.MatchString(stripped) && len(strings.Fields(stripped)) >= 2 {
			out = append(out, "", "## "+titleCase(stripped), "")
			continue
		}

		if captionPattern.MatchString(stripped) {
			out = append(out, "", "### "+stripped, "")
			continue
		}

		if len(stripped) < 80 && strings.HasSuffix(stripped, ":") && !numberedPattern.MatchString(stripped) {
			title := strings.TrimSuffix(stripped, ":")
			if hasSectionKeyword(title) || len(strings.Fields(title)) <= 6 {
				out = append(out, "", "## "+title, "")
				continue
			}
		}

		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

func hasSectionKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range sectionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}
