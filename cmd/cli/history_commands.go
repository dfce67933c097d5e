package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
	"github.com/himanishpuri/SimilarityDeck/pkg/utils"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past analyses",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryDeleteCommand(ctx))
	historyCmd.AddCommand(newHistoryExportCommand(ctx))
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(simdeck.History) error) error {
	h, err := ctx.openHistory()
	if err != nil {
		return err
	}
	defer h.Close()
	return fn(h)
}

func notFound(id string, err error) error {
	if errors.Is(err, simdeck.ErrHistoryNotFound) {
		return fmt.Errorf("no analysis with id %s", id)
	}
	return err
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(h simdeck.History) error {
				entries, err := h.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No analyses recorded yet")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						shortID(e.ID),
						string(e.Kind),
						e.QueryFile,
						string(e.Outcome),
						strconv.Itoa(e.ResultCount),
						fmt.Sprintf("%.1f%%", e.AvgSimilarity),
						utils.FormatAge(e.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Kind", "File", "Outcome", "Matches", "Avg", "When"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				if total, err := h.Count(cmd.Context()); err == nil && total > int64(len(entries)) {
					fmt.Fprintf(out, "Showing %d of %d analyses (use --limit to see more)\n", len(entries), total)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of analyses to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analyses as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one analysis with its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(h simdeck.History) error {
				e, err := resolveEntry(cmd, h, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, e)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", e.ID)
				fmt.Fprintf(out, "Kind:      %s\n", e.Kind)
				fmt.Fprintf(out, "File:      %s (%s)\n", e.QueryFile, utils.FormatSize(e.QuerySize))
				fmt.Fprintf(out, "Outcome:   %s\n", e.Outcome)
				if e.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", e.ErrorMessage)
				}
				fmt.Fprintf(out, "When:      %s (%s)\n", e.CreatedAt.Local().Format(time.DateTime), utils.FormatAge(e.CreatedAt))
				fmt.Fprintf(out, "Duration:  %s\n", e.Duration.Round(time.Millisecond))

				if len(e.Results) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(e.Results))
				for i, r := range e.Results {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						r.Title,
						r.Subtitle,
						fmt.Sprintf("%.1f%%", r.Similarity),
					})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"#", "Title", "Subtitle", "Similarity"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func newHistoryDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an analysis and its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(h simdeck.History) error {
				e, err := resolveEntry(cmd, h, args[0])
				if err != nil {
					return err
				}
				if err := h.Delete(cmd.Context(), e.ID); err != nil {
					return notFound(e.ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %s (%s)\n", e.ID, e.QueryFile)
				return nil
			})
		},
	}
}

func newHistoryExportCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write an analysis as a results JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(h simdeck.History) error {
				e, err := resolveEntry(cmd, h, args[0])
				if err != nil {
					return err
				}
				if dir == "-" {
					return writeJSON(cmd, e.Export())
				}

				target := strings.TrimSpace(dir)
				if target == "" {
					cfg, _ := ctx.ensureConfig()
					target = cfg.Analysis.ExportDir
				}
				target, err = utils.ExpandHome(target)
				if err != nil {
					return err
				}
				if err := utils.MakeDir(target); err != nil {
					return err
				}

				path := filepath.Join(target, simdeck.ExportFilename(e.Kind, e.CreatedAt))
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create export: %w", err)
				}
				if err := simdeck.WriteExport(f, e.Export()); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory, or - for stdout (default: analysis.export_dir)")
	return cmd
}

// resolveEntry accepts a full id or a unique prefix from the recent list.
func resolveEntry(cmd *cobra.Command, h simdeck.History, id string) (*simdeck.HistoryEntry, error) {
	e, err := h.Get(cmd.Context(), id)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, simdeck.ErrHistoryNotFound) {
		return nil, err
	}

	entries, lerr := h.List(cmd.Context(), 0)
	if lerr != nil {
		return nil, lerr
	}
	var match *simdeck.HistoryEntry
	for i := range entries {
		if strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("id prefix %s is ambiguous", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, notFound(id, err)
	}
	// List rows carry no matches; fetch the full entry.
	full, err := h.Get(cmd.Context(), match.ID)
	if err != nil {
		return nil, notFound(match.ID, err)
	}
	return full, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
