package pinpoint

import "strings"

// BlockKind classifies a display block of pre-split plain text.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
)

// Block is one independently rendered unit of block-structured plain text.
// Block text is a slice of the flattened document, so global offsets into
// the flattened document do not index into individual blocks.
type Block struct {
	Kind BlockKind
	Text string
}

// SplitBlocks splits plain text into heading, list, and paragraph blocks
// for block-by-block display. Blank lines separate paragraphs; consecutive
// list lines form a single list block.
func SplitBlocks(text string) []Block {
	var blocks []Block
	var para []string
	var list []string

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: strings.Join(para, "\n")})
			para = nil
		}
	}
	flushList := func() {
		if len(list) > 0 {
			blocks = append(blocks, Block{Kind: BlockList, Text: strings.Join(list, "\n")})
			list = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)

		switch {
		case stripped == "":
			flushPara()
			flushList()
		case isHeadingLine(stripped):
			flushPara()
			flushList()
			blocks = append(blocks, Block{Kind: BlockHeading, Text: stripped})
		case isListLine(stripped):
			flushPara()
			list = append(list, stripped)
		default:
			flushList()
			para = append(para, line)
		}
	}
	flushPara()
	flushList()

	return blocks
}

// JoinBlocks reassembles blocks into displayable text, one blank line
// between blocks.
func JoinBlocks(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n\n")
}

func isHeadingLine(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	trimmed := strings.TrimLeft(s, "#")
	return strings.HasPrefix(trimmed, " ") && strings.TrimSpace(trimmed) != ""
}

func isListLine(s string) bool {
	for _, prefix := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	// numbered items: "1. ", "12. "
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(s) && s[i] == '.' && s[i+1] == ' '
}
