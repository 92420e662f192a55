package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/importer"
)

func newImportCommand(st *state) *cobra.Command {
	var (
		opts     importer.Options
		external string
	)
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import HTML and markdown pages into the document store",
		Long: `Import every page under a directory. Page ids follow the sorted file
paths, so importing an unchanged tree again replaces the same documents.

Examples:
  linkctl import ./public --base-url https://example.com
  linkctl import ./content --base-url https://example.com --exclude "drafts/"
  linkctl import ./public --base-url https://example.com --external partners.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}
			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("path does not exist: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("path is not a directory: %s", root)
			}

			ctx := cmd.Context()
			a, err := st.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			im, err := importer.New(a.Store, a.Normalizer, opts)
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			progress := func(done, total int) {
				if st.noProgress {
					return
				}
				if bar == nil {
					bar = newBar(st, total, "Importing")
				}
				_ = bar.Set(done)
			}
			sum, err := im.Import(ctx, root, progress)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Fprintf(st.out, "Import complete:\n")
			fmt.Fprintf(st.out, "  Documents:      %d\n", sum.Documents)
			fmt.Fprintf(st.out, "  Terms:          %d\n", sum.Terms)
			fmt.Fprintf(st.out, "  Keywords:       %d\n", sum.Keywords)
			fmt.Fprintf(st.out, "  Links:          %d\n", sum.Links)
			fmt.Fprintf(st.out, "  External links: %d\n", sum.ExternalLinks)
			if sum.Skipped > 0 {
				fmt.Fprintf(st.out, "  Skipped:        %d\n", sum.Skipped)
			}

			if external != "" {
				f, err := os.Open(external)
				if err != nil {
					return fmt.Errorf("open external items: %w", err)
				}
				defer f.Close()
				n, err := im.ImportExternal(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(st.out, "  External items: %d\n", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "public address of the site root (required)")
	cmd.Flags().StringSliceVar(&opts.Includes, "include", nil, "glob of files to import (default html and markdown)")
	cmd.Flags().StringSliceVar(&opts.Excludes, "exclude", nil, `glob of files to skip; "dir/" skips a directory`)
	cmd.Flags().StringVar(&opts.PostType, "post-type", "", "post type of pages without one (default post)")
	cmd.Flags().StringVar(&external, "external", "", "YAML list of posts and terms on linked sites")
	_ = cmd.MarkFlagRequired("base-url")
	return cmd
}

func newBar(st *state, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(st.errOut),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(st.errOut)
		}),
	)
}
