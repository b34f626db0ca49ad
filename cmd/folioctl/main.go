package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zg0ul/portfolio/internal/config"
	"github.com/zg0ul/portfolio/internal/importer"
	"github.com/zg0ul/portfolio/internal/project"
	"github.com/zg0ul/portfolio/internal/render"
	"github.com/zg0ul/portfolio/internal/store"
	"github.com/zg0ul/portfolio/internal/toc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "folioctl",
		Short:         "Manage portfolio projects from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides STORE_BACKEND)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	open := func() (project.Store, error) {
		return openStore(dbPath, verbose)
	}

	root.AddCommand(newImportCmd(open))
	root.AddCommand(newListCmd(open))
	root.AddCommand(newTocCmd())
	return root
}

func openStore(dbPath string, verbose bool) (project.Store, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.StoreBackend = "sqlite"
		cfg.DatabasePath = dbPath
	}
	return store.Open(cfg, log)
}

func newImportCmd(open func() (project.Store, error)) *cobra.Command {
	var featured, dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a project from a Markdown, HTML, text, CSV, DOCX or PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			draft, err := importer.Import(f, path)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			p, err := draft.Project()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("featured") {
				p.Featured = featured
			}

			if dryRun {
				return printJSON(cmd.OutOrStdout(), p)
			}

			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			created, err := s.Create(context.Background(), p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", created.Slug, created.ID)
			return err
		},
	}
	cmd.Flags().BoolVar(&featured, "featured", false, "mark the project as featured")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the project instead of saving it")
	return cmd
}

func newListCmd(open func() (project.Store, error)) *cobra.Command {
	var featuredOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			projects, err := s.List(context.Background(), project.ListOptions{FeaturedOnly: featuredOnly, Limit: limit})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tTITLE\tFEATURED\tVIEWS")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%d\n", p.Slug, p.Title, p.Featured, p.Views)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&featuredOnly, "featured", false, "only featured projects")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of projects (0 for all)")
	return cmd
}

func newTocCmd() *cobra.Command {
	var asJSON, asHTML bool

	cmd := &cobra.Command{
		Use:   "toc <file.md>",
		Short: "Print the table of contents of a Markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := render.New().Render(string(src))
			if err != nil {
				return err
			}
			return writeOutline(cmd.OutOrStdout(), doc, asJSON, asHTML)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print headings as JSON")
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the inline navigation HTML")
	return cmd
}

func writeOutline(w io.Writer, doc *render.Document, asJSON, asHTML bool) error {
	switch {
	case asJSON:
		return printJSON(w, doc.Headings)
	case asHTML:
		return toc.Render(w, toc.NewWidget(doc.Headings, toc.Options{Presentation: toc.Inline}))
	}
	var err error
	toc.Walk(doc.Outline, func(n *toc.OutlineNode, depth int) {
		if err == nil {
			_, err = fmt.Fprintf(w, "%s- %s (#%s)\n", strings.Repeat("  ", depth), n.Entry.Text, n.Entry.ID)
		}
	})
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
