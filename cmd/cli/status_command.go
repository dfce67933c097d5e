package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the analysis server and its database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.newSession(kind, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			probeCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			st, err := sess.flow.CheckSystem(probeCtx)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, st)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\n", sess.profile.BaseURL)
			rows := [][]string{
				{"Server", st.Server},
				{"Similarity engine", st.Engine},
				{"Database", st.Database},
				{"Demo mode", yesNo(st.DemoMode)},
			}
			fmt.Fprintln(out, renderTable([]string{"Component", "Status"}, rows, nil))
			if st.Healthy() {
				fmt.Fprintln(out, "All systems operational")
			} else if st.Err != nil {
				fmt.Fprintf(out, "\n%s\n", simdeck.UserMessage(st.Err))
			}
			if st.DemoMode && sess.profile.MockFallback {
				fmt.Fprintln(out, "Analyses will fall back to demo results until the server is reachable.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Analysis kind: audio or image (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
