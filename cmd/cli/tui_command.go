package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/SimilarityDeck/internal/tui"
	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
	"github.com/himanishpuri/SimilarityDeck/pkg/utils"
)

func newTUICommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "tui [file]",
		Short: "Run the interactive upload and results screen",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			closeLog, err := redirectTUILogs(cfg.Logging.File)
			if err != nil {
				return err
			}
			defer closeLog()

			// The observer outlives program construction, so it sends through
			// a variable bound once the program exists.
			var program *tea.Program
			observer := func(st simdeck.State) {
				if program != nil {
					program.Send(tui.StateChanged{State: st})
				}
			}

			sess, err := ctx.newSession(kind, observer)
			if err != nil {
				return err
			}
			defer sess.Close()

			var initial string
			if len(args) == 1 {
				initial = args[0]
			}

			model := tui.NewModel(cmd.Context(), sess.flow, cfg.Analysis.ExportDir, initial)
			program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run ui: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Analysis kind: audio or image (default from config)")
	return cmd
}

// redirectTUILogs moves log output off the terminal, since log lines would
// tear the alternate screen. Without a log file the output is discarded.
func redirectTUILogs(path string) (func(), error) {
	if path == "" {
		logger.SetOutput(io.Discard)
		return func() {}, nil
	}
	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := logger.GetLogger().OpenFile(path)
	if err != nil {
		return nil, err
	}
	return func() { f.Close() }, nil
}
