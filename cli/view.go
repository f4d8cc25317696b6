package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boolean-maybe/pinpoint/loaders"
	"github.com/boolean-maybe/pinpoint/pinpoint"
	pinview "github.com/boolean-maybe/pinpoint/pinpoint/tview"
	"github.com/boolean-maybe/pinpoint/util"
)

const defaultCacheTTL = 10 * time.Minute

var viewCmd = &cobra.Command{
	Use:   "view [facts.yaml]",
	Short: "Open the evidence panel",
	Long: `Open the evidence panel for a set of facts.

With a facts file argument, facts and sources are loaded locally and
content is fetched directly. With --backend, facts are served by the
workspace API; use --fact to name the facts to review.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringSlice("fact", nil, "fact IDs to review (backend mode)")
	_ = viper.BindPFlag("fact", viewCmd.Flags().Lookup("fact"))
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	project := viper.GetString("project")

	var provider pinpoint.EvidenceProvider
	var factIDs []string

	switch {
	case len(args) == 1:
		facts, err := loaders.LoadFactsFile(args[0], loaders.NewWebLoader())
		if err != nil {
			return err
		}
		provider = facts
		factIDs = facts.FactIDs()
		if viper.GetString("project") == "default" {
			project = facts.Project()
		}
	case viper.GetString("backend") != "":
		provider = loaders.NewResearchAPI(viper.GetString("backend"), viper.GetString("token"))
		factIDs = viper.GetStringSlice("fact")
	default:
		return errors.New("either a facts file argument or --backend is required")
	}

	if len(factIDs) == 0 {
		return errors.New("no facts to review")
	}

	ttl := viper.GetDuration("cache-ttl")
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache := pinpoint.NewContentCache(ttl, viper.GetInt("prefetch"), logger)
	defer cache.Close()

	session := pinpoint.NewEvidenceSession(project, pinpoint.SessionOptions{
		Provider: provider,
		Cache:    cache,
		Logger:   logger,
	})
	defer session.Close()

	return runPanel(session, factIDs)
}

// panelState is the mutable navigation state of the panel. All access is
// on the UI goroutine.
type panelState struct {
	factIDs []string
	index   int
	rep     pinpoint.Representation
}

func (p *panelState) neighbors() []string {
	var out []string
	if p.index > 0 {
		out = append(out, p.factIDs[p.index-1])
	}
	if p.index < len(p.factIDs)-1 {
		out = append(out, p.factIDs[p.index+1])
	}
	return out
}

func runPanel(session *pinpoint.EvidenceSession, factIDs []string) error {
	app := tview.NewApplication()

	view := pinview.NewEvidenceView(app, session, logger)
	view.SetAnsiConverter(util.NewAnsiConverter(true))
	view.SetMarkdownRenderer(pinpoint.NewANSIRendererWithStyle(viper.GetString("style")))

	statusBar := tview.NewTextView()
	statusBar.SetDynamicColors(true)
	statusBar.SetTextAlign(tview.AlignLeft)

	state := &panelState{factIDs: factIDs, rep: pinpoint.RepresentationMarkdown}

	showCurrent := func() {
		factID := state.factIDs[state.index]
		go func() {
			err := view.ShowFact(context.Background(), factID, state.neighbors())
			app.QueueUpdateDraw(func() {
				updateStatusBar(statusBar, session, state, err)
			})
		}()
	}

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Rune() == 'q':
			app.Stop()
			return nil
		case event.Rune() == 'n' || event.Key() == tcell.KeyRight:
			if state.index < len(state.factIDs)-1 {
				state.index++
				showCurrent()
			}
			return nil
		case event.Rune() == 'p' || event.Key() == tcell.KeyLeft:
			if state.index > 0 {
				state.index--
				showCurrent()
			}
			return nil
		case event.Key() == tcell.KeyTab:
			if state.rep == pinpoint.RepresentationMarkdown {
				state.rep = pinpoint.RepresentationText
			} else {
				state.rep = pinpoint.RepresentationMarkdown
			}
			view.SetRepresentation(state.rep)
			updateStatusBar(statusBar, session, state, nil)
			return nil
		case event.Rune() == 'b':
			if id := session.GoBack(); id != "" {
				state.index = indexOf(state.factIDs, id, state.index)
				showCurrent()
			}
			return nil
		case event.Rune() == 'f':
			if id := session.GoForward(); id != "" {
				state.index = indexOf(state.factIDs, id, state.index)
				showCurrent()
			}
			return nil
		}
		return event
	})

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(view, 0, 1, true).
		AddItem(statusBar, 1, 0, false)

	showCurrent()

	if err := app.SetRoot(flex, true).Run(); err != nil {
		return fmt.Errorf("run panel: %w", err)
	}
	return nil
}

func indexOf(ids []string, id string, fallback int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return fallback
}

func updateStatusBar(statusBar *tview.TextView, session *pinpoint.EvidenceSession, state *panelState, err error) {
	display := session.Display()

	tier := display.Match.Type.String()
	tierColor := "green"
	switch display.Match.Type {
	case pinpoint.MatchTypeFuzzy, pinpoint.MatchTypeAnchor:
		tierColor = "yellow"
	case pinpoint.MatchTypeNone:
		tierColor = "red"
		tier = "not found"
	}

	status := fmt.Sprintf(" [yellow]%s[-] (%d/%d) | view:%s | match:[%s]%s[-]",
		state.factIDs[state.index], state.index+1, len(state.factIDs),
		display.Representation, tierColor, tier)
	if err != nil {
		status += fmt.Sprintf(" | [red]%v[-]", err)
	}
	status += " | Next/Prev:[gray]n/p[-] View:[gray]Tab[-] Quit:[gray]q[-]"

	statusBar.SetText(status)
}
