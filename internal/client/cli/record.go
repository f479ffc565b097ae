package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/audio"
	"github.com/dmitrijs2005/voicefeed/internal/capture"
	"github.com/dmitrijs2005/voicefeed/internal/client/config"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/filex"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/spf13/cobra"
)

// recordingsDir receives local copies made with record --keep.
const recordingsDir = "recordings"

// newCaptureDevice picks the microphone, or a file when from is set.
// Tests replace it.
var newCaptureDevice = func(cfg *config.Config, from string) capture.Device {
	if from != "" {
		return capture.FileDevice(from, cfg.TimeSlice)
	}
	d := capture.NewArecordDevice()
	d.Slice = cfg.TimeSlice
	return d
}

type recordOptions struct {
	title   string
	from    string
	max     time.Duration
	maxSet  bool
	keep    bool
	cleanup bool
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// readLine reads one line in the background. The channel yields nil for a
// line and an error on EOF or failure.
func (a *App) readLine() <-chan error {
	ch := make(chan error, 1)
	go func() {
		_, err := a.reader.ReadString('\n')
		ch <- err
	}()
	return ch
}

// Record captures one memo and publishes it. A failed upload keeps the
// recording so the user can retry without recording again.
func (a *App) Record(ctx context.Context, o recordOptions) error {
	maxSeconds := a.config.MaxDurationSeconds()
	if o.maxSet {
		if err := config.CheckMaxDuration(o.max); err != nil {
			return failed(err, "Invalid --max")
		}
		maxSeconds = int(o.max / time.Second)
	}

	user, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	last := -1
	ctrl := capture.New(newCaptureDevice(a.config, o.from),
		capture.WithMaxDuration(maxSeconds),
		capture.WithLogger(logging.ForModule(a.logger, "capture")),
		capture.WithObserver(func(s capture.Status) {
			if s.State == capture.Recording && s.Elapsed != last && s.Elapsed > 0 {
				last = s.Elapsed
				fmt.Fprintf(a.out, "\r%s / %s", formatDuration(s.Elapsed), formatDuration(s.Max))
			}
		}),
	)
	defer ctrl.Close()

	a.setView(ViewRecorder)
	defer a.setView(ViewFeed)

	fut, err := ctrl.Start(ctx)
	if err != nil {
		return failed(err, "Failed to start recording")
	}

	art, err := a.awaitRecording(ctx, ctrl, fut, o.from == "")
	if err != nil {
		return failed(err, "Failed to save recording")
	}
	fmt.Fprintf(a.out, "\nRecorded %s (%d bytes, %s)\n", formatDuration(art.DurationSeconds()), art.Size(), art.ContentType())

	if o.keep {
		name := fmt.Sprintf("voice-memo-%d.%s", art.CreatedAt().UnixNano(), audio.ExtensionFor(art.ContentType()))
		path, err := filex.SaveInSubdir(recordingsDir, name, art.Bytes())
		if err != nil {
			a.toast(failed(err, "Failed to save local copy"))
		} else {
			a.info("Local copy saved to " + path)
		}
	}

	pipe := a.pipeline(o.cleanup)
	for {
		var memo *models.VoiceMemo
		err := ctrl.Publish(ctx, func(ctx context.Context, art *capture.Artifact) error {
			m, err := pipe.Publish(ctx, art, o.title, user.ID, art.DurationSeconds())
			memo = m
			return err
		})
		if err == nil {
			a.success(fmt.Sprintf("Voice memo saved! (%s)", memo.ID))
			return nil
		}

		err = failed(err, "Failed to save voice memo. Please try again.")
		if errors.Is(err, common.ErrCaptureEmpty) || ctrl.State() != capture.Stopped {
			return err
		}

		a.toast(err)
		if !confirm(a.reader, "Retry upload?", a.out) {
			_ = ctrl.Cancel(ctx)
			return reportedError{err}
		}
	}
}

// awaitRecording waits for the user to press Enter, for the session to end
// on its own (cap reached or source exhausted), or for ctx. Only
// interactive sessions listen for Enter.
func (a *App) awaitRecording(ctx context.Context, ctrl *capture.Controller, fut *capture.Future, interactive bool) (*capture.Artifact, error) {
	var enter <-chan error
	if interactive {
		fmt.Fprintln(a.out, "Recording... press Enter to stop.")
		enter = a.readLine()
	} else {
		fmt.Fprintln(a.out, "Recording from file...")
	}

	for {
		select {
		case err := <-enter:
			enter = nil
			if err != nil {
				// No keyboard: run until the cap.
				continue
			}
			return ctrl.Stop(ctx)

		case <-fut.Done():
			art, err := fut.Wait(ctx)
			if enter != nil {
				fmt.Fprintln(a.out, "\nRecording stopped. Press Enter to continue.")
				select {
				case <-enter:
				case <-ctx.Done():
				}
			}
			return art, err

		case <-ctx.Done():
			_ = ctrl.Cancel(context.Background())
			return nil, ctx.Err()
		}
	}
}

func newRecordCmd(rt *runtime) *cobra.Command {
	var o recordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice memo and publish it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.maxSet = cmd.Flags().Changed("max")
			return rt.app.Record(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVarP(&o.title, "title", "t", "", "memo title (default \"Untitled memo\")")
	cmd.Flags().StringVar(&o.from, "from", "", "stream a pre-recorded file instead of the microphone (- for stdin)")
	cmd.Flags().DurationVar(&o.max, "max", 0, "recording cap, at most 3m (default from --max-duration)")
	cmd.Flags().BoolVar(&o.keep, "keep", false, "also save the recording under ./"+recordingsDir)
	cmd.Flags().BoolVar(&o.cleanup, "cleanup-orphans", false, "delete the uploaded audio if saving the memo fails")
	return cmd
}
