package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boolean-maybe/pinpoint/loaders"
	"github.com/boolean-maybe/pinpoint/pinpoint"
)

var locateCmd = &cobra.Command{
	Use:   "locate <file-or-url>",
	Short: "Locate a quote in a document and print the match",
	Long: `Locate a quote in a document without opening the panel. Prints the
match tier and the byte offsets of the located span, or "none" when the
quote cannot be found at any tier.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().String("quote", "", "quote text to locate (required)")
	locateCmd.Flags().Bool("raw", false, "search the raw text instead of the reader view")
	_ = locateCmd.MarkFlagRequired("quote")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	quoteText, _ := cmd.Flags().GetString("quote")
	raw, _ := cmd.Flags().GetBool("raw")

	loader := loaders.NewWebLoader()
	content, err := loader.Fetch(cmd.Context(), viper.GetString("project"), args[0])
	if err != nil {
		return err
	}

	rep := pinpoint.RepresentationMarkdown
	if raw {
		rep = pinpoint.RepresentationText
	}
	text := content.ForRepresentation(rep)
	if text == "" {
		text = pinpoint.FormatReader(content.Text)
	}
	if text == "" {
		return errors.New("document has no content")
	}

	matcher := pinpoint.NewTieredMatcher()
	match := pinpoint.LocateQuote(matcher, pinpoint.Quote{Text: quoteText}, text, rep)
	if !match.Found {
		fmt.Println("none")
		return nil
	}

	fmt.Printf("%s %d:%d\n", match.Type, match.Start, match.End)
	if snippet := snippetAround(text, match.Start, match.End); snippet != "" {
		fmt.Println(snippet)
	}
	return nil
}

// snippetAround returns the matched span with a little surrounding
// context for eyeballing the hit.
func snippetAround(text string, start, end int) string {
	const margin = 40
	lo := start - margin
	if lo < 0 {
		lo = 0
	}
	hi := end + margin
	if hi > len(text) {
		hi = len(text)
	}
	// do not split multi-byte runes at the cut points
	for lo > 0 && lo < len(text) && !isRuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !isRuneStart(text[hi]) {
		hi++
	}
	return text[lo:hi]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
