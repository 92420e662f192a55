package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/store"
)

func newShowCommand(st *state) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored document with its keywords and links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
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

			item, err := a.Docs.GetDocument(ctx, ref)
			if err != nil {
				return err
			}
			kws, err := a.Docs.GetActiveKeywords(ctx, ref)
			if err != nil {
				return err
			}
			out, err := a.Docs.GetLinks(ctx, ref, store.Outbound)
			if err != nil {
				return err
			}
			in, err := a.Docs.GetLinks(ctx, ref, store.Inbound)
			if err != nil {
				return err
			}

			fmt.Fprintf(st.out, "%s  %s\n", ref, item.TitleText)
			fmt.Fprintf(st.out, "  URL:        %s\n", item.URL)
			fmt.Fprintf(st.out, "  Type:       %s (%s)\n", item.Type, item.Status)
			if !item.Published.IsZero() {
				fmt.Fprintf(st.out, "  Published:  %s\n", item.Published.Format("2006-01-02"))
			}
			if len(item.Categories) > 0 {
				ids := make([]string, len(item.Categories))
				for i, c := range item.Categories {
					ids[i] = strconv.FormatInt(c, 10)
				}
				fmt.Fprintf(st.out, "  Categories: %s\n", strings.Join(ids, ", "))
			}
			if len(kws) > 0 {
				fmt.Fprintf(st.out, "  Keywords:   %s\n", keywords.ActiveString(kws))
			}
			fmt.Fprintf(st.out, "  Links out:  %d\n", len(out))
			for _, l := range out {
				fmt.Fprintf(st.out, "    %q -> %s\n", l.Anchor, l.URL)
			}
			fmt.Fprintf(st.out, "  Links in:   %d\n", len(in))
			for _, l := range in {
				fmt.Fprintf(st.out, "    from %s %q\n", l.Source, l.Anchor)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "post", "document kind: post or term")
	return cmd
}
