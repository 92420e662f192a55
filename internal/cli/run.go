package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/aggregate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/worker"
)

var runHelp = map[string]struct{ short, long string }{
	"outbound": {
		short: "Suggest links from a document to other documents",
		long: `Scan the content of a document for phrases that could link to other
posts, terms and, when external linking is on, to linked sites.

Examples:
  linkctl outbound 12
  linkctl outbound 4 --kind term --json`,
	},
	"inbound": {
		short: "Suggest documents that should link to a document",
		long: `Scan every other post for phrases that could link to the target document.
--keywords replaces the target's keywords with a ';' separated list.

Examples:
  linkctl inbound 12
  linkctl inbound 12 --keywords "winter boots;hiking boots"`,
	},
}

func newRunCommand(st *state, mode string) *cobra.Command {
	var (
		kind     string
		keywords string
		asJSON   bool
	)
	help := runHelp[mode]
	cmd := &cobra.Command{
		Use:   mode + " <id>",
		Short: help.short,
		Long:  help.long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid document id %q", args[0])
			}
			k, err := doc.ParseKind(kind)
			if err != nil {
				return err
			}
			ref := doc.Ref{ID: id, Kind: k}

			ctx := cmd.Context()
			a, err := st.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req := events.RunRequest{
				ProcessKey: uuid.NewString(),
				Mode:       mode,
				DocumentID: id,
				Kind:       kind,
				Keywords:   keywords,
			}
			if err := worker.New(a.Orchestrator, 0).Drive(ctx, req, st.progress()); err != nil {
				return fmt.Errorf("%s run failed: %w", mode, err)
			}

			view, err := a.Orchestrator.GetFormattedSuggestions(ctx, batch.FormatRequest{
				ProcessKey: req.ProcessKey,
				Mode:       runstate.Mode(mode),
				Document:   ref,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(st.out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			st.printView(ref, view)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "post", "document kind: post or term")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the suggestions as JSON")
	if mode == "inbound" {
		cmd.Flags().StringVar(&keywords, "keywords", "", "';' separated keywords to search for instead of the target's own")
	}
	return cmd
}

// progress renders one bar per run mode.
func (st *state) progress() func(worker.Progress) {
	if st.noProgress {
		return nil
	}
	var (
		bar  *progressbar.ProgressBar
		mode runstate.Mode
	)
	return func(p worker.Progress) {
		if p.Total == 0 {
			return
		}
		if bar == nil || p.Mode != mode {
			mode = p.Mode
			bar = newBar(st, p.Total, "Scanning "+string(p.Mode))
		}
		_ = bar.Set(p.Processed)
		if p.Completed {
			_ = bar.Finish()
		}
	}
}

func (st *state) printView(ref doc.Ref, view *batch.Formatted) {
	switch {
	case view.Outbound != nil:
		st.printOutbound(ref, *view.Outbound)
	case view.Inbound != nil:
		st.printInbound(ref, *view.Inbound)
	default:
		fmt.Fprintln(st.out, "No suggestions.")
	}
}

func (st *state) printOutbound(ref doc.Ref, v aggregate.OutboundView) {
	if v.Empty() {
		fmt.Fprintf(st.out, "No link suggestions for %s.\n", ref)
		return
	}
	fmt.Fprintf(st.out, "Link suggestions for %s:\n", ref)
	for _, p := range v.Internal {
		st.printPhrase(p)
	}
	if len(v.External) > 0 {
		fmt.Fprintln(st.out, "\nExternal sites:")
		for _, p := range v.External {
			st.printPhrase(p)
		}
	}
}

func (st *state) printInbound(ref doc.Ref, v aggregate.InboundView) {
	if len(v.Groups) == 0 {
		fmt.Fprintf(st.out, "No documents found that could link to %s.\n", ref)
		return
	}
	fmt.Fprintf(st.out, "Documents that could link to %s:\n", ref)
	for _, g := range v.Groups {
		fmt.Fprintf(st.out, "\n%s <%s>\n", g.Target.Title, g.Target.URL)
		for _, p := range g.Phrases {
			if top := p.Top(); top != nil {
				fmt.Fprintf(st.out, "  - %q in: %s\n", top.Anchor, p.SentenceText)
			}
		}
	}
}

func (st *state) printPhrase(p *suggest.Phrase) {
	top := p.Top()
	if top == nil {
		return
	}
	fmt.Fprintf(st.out, "  - %q -> %s <%s> (score %.1f)\n", top.Anchor, top.Target.Title, top.Target.URL, top.TotalScore)
	fmt.Fprintf(st.out, "      %s\n", p.SentenceText)
}
