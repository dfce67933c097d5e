package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
	"github.com/himanishpuri/SimilarityDeck/pkg/utils"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var asJSON bool
	var save bool
	var play int

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Upload a file and list the most similar matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			progress := newProgressObserver(cmd.ErrOrStderr(), !asJSON)
			sess, err := ctx.newSession(kind, progress.observe)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.flow.SelectFile(args[0]); err != nil {
				return errors.New(simdeck.UserMessage(err))
			}

			err = sess.flow.Analyze(runCtx)
			progress.finish()
			st := sess.flow.Snapshot()
			if err != nil {
				logger.Debugf("analyze %s: %v", args[0], err)
				msg := st.Message()
				if msg == "" {
					msg = simdeck.UserMessage(err)
				}
				return errors.New(msg)
			}

			if asJSON {
				if err := writeJSON(cmd, simdeck.NewExport(st, time.Now())); err != nil {
					return err
				}
			} else {
				printResults(cmd.OutOrStdout(), st)
			}

			if save {
				cfg, _ := ctx.ensureConfig()
				path, err := sess.flow.SaveResults(cfg.Analysis.ExportDir)
				if err != nil {
					return fmt.Errorf("save results: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved results to %s\n", path)
			}

			if play > 0 {
				return playResult(runCtx, cmd, sess, progress, play)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Analysis kind: audio or image (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Also save the results into the export directory")
	cmd.Flags().IntVar(&play, "play", 0, "Play the N-th result after listing (audio only)")
	return cmd
}

func printResults(w io.Writer, st simdeck.State) {
	if st.Notice != "" {
		fmt.Fprintf(w, "%s\n\n", st.Notice)
	}
	if best := st.Stats.Best; best != nil {
		fmt.Fprintf(w, "Best match: %s", best.Title)
		if best.Subtitle != "" {
			fmt.Fprintf(w, " by %s", best.Subtitle)
		}
		fmt.Fprintf(w, " (%.1f%%)\n\n", best.Similarity)
	}

	headers := []string{"#", "Title", "Artist", "Similarity", "Confidence"}
	if st.Kind == simdeck.KindImage {
		headers[2] = "Source"
	}
	rows := make([][]string, 0, len(st.Results))
	for i, r := range st.Results {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Title,
			r.Subtitle,
			fmt.Sprintf("%.1f%%", r.Similarity),
			string(simdeck.ConfidenceOf(r.Similarity)),
		})
	}
	fmt.Fprintln(w, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft}))

	fmt.Fprintf(w, "\n%d matches · average %s%% · %s",
		st.Stats.Total, st.Stats.AvgText(), st.Stats.ProcessingTime.Round(time.Millisecond))
	if st.File != nil {
		fmt.Fprintf(w, " · query %s (%s)", st.File.Name, utils.FormatSize(st.File.Size))
	}
	fmt.Fprintln(w)
}

// playResult plays the n-th result and blocks until it ends or ctx is done.
func playResult(ctx context.Context, cmd *cobra.Command, sess *session, obs *progressObserver, n int) error {
	st := sess.flow.Snapshot()
	if n > len(st.Results) {
		return fmt.Errorf("--play %d: only %d results", n, len(st.Results))
	}
	target := st.Results[n-1]

	changed := obs.subscribe()
	if err := sess.flow.TogglePlayback(ctx, target.ID); err != nil {
		return errors.New(simdeck.UserMessage(err))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Playing %s (Ctrl+C to stop)\n", target.Title)

	for sess.flow.Snapshot().PlayingID == target.ID {
		select {
		case <-changed:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// progressObserver renders flow progress on a terminal bar and fans state
// changes out to an optional subscriber. The flow may call it from the
// playback goroutine, hence the mutex.
type progressObserver struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	changed chan struct{}
}

func newProgressObserver(w io.Writer, enabled bool) *progressObserver {
	o := &progressObserver{}
	if enabled {
		o.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription("Uploading..."),
		)
	}
	return o
}

func (o *progressObserver) observe(st simdeck.State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar != nil && st.Screen == simdeck.ScreenLoading {
		if st.Progress.Label != "" {
			o.bar.Describe(st.Progress.Label)
		}
		_ = o.bar.Set(st.Progress.Percent)
	}
	if o.changed != nil {
		select {
		case o.changed <- struct{}{}:
		default:
		}
	}
}

func (o *progressObserver) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.bar != nil {
		_ = o.bar.Finish()
		o.bar = nil
	}
}

func (o *progressObserver) subscribe() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.changed == nil {
		o.changed = make(chan struct{}, 1)
	}
	return o.changed
}
