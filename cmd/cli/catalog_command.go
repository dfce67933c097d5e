package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search the document catalog",
	}
	catalogCmd.AddCommand(newCatalogSearchCommand(ctx))
	return catalogCmd
}

type catalogPage struct {
	Query      string             `json:"query"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	Total      int                `json:"total"`
	Offline    bool               `json:"offline"`
	Documents  []catalog.Document `json:"documents"`
}

func newCatalogSearchCommand(ctx *commandContext) *cobra.Command {
	var page int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents by title and content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")

			searchCtx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			offline := false
			docs, err := catalog.NewClient(cfg.Server.CatalogURL).Search(searchCtx, query)
			if errors.Is(err, catalog.ErrUnreachable) {
				logger.Warnf("catalog unreachable, searching the built-in corpus: %v", err)
				docs, err, offline = catalog.MockSearch(query), nil, true
			}
			if err != nil {
				return err
			}

			pager := catalog.NewPager(docs)
			pager.Go(page)

			if asJSON {
				return writeJSON(cmd, catalogPage{
					Query:      query,
					Page:       pager.Current(),
					TotalPages: pager.TotalPages(),
					Total:      len(docs),
					Offline:    offline,
					Documents:  pager.Page(),
				})
			}

			out := cmd.OutOrStdout()
			if offline {
				fmt.Fprintln(out, "Catalog server unavailable, showing built-in documents")
			}
			if len(docs) == 0 {
				fmt.Fprintf(out, "No documents match %q\n", query)
				return nil
			}

			rows := make([][]string, 0, catalog.PageSize)
			for _, d := range pager.Page() {
				rows = append(rows, []string{
					strconv.Itoa(d.ID),
					d.Title,
					d.Content,
					catalog.DocumentURL(cfg.Server.CatalogURL, d.ID),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Content", "Link"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))

			if pager.ShowControls() {
				fmt.Fprintf(out, "Page %d of %d (%d documents)", pager.Current(), pager.TotalPages(), len(docs))
				if pager.HasNext() {
					fmt.Fprintf(out, " · next: --page %d", pager.Current()+1)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Result page to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}
