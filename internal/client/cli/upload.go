package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/voicefeed/internal/audio"
	"github.com/spf13/cobra"
)

type uploadOptions struct {
	title    string
	duration int
	cleanup  bool
}

// Upload publishes an existing audio file. The duration of WAV files is
// read from the header unless given explicitly.
func (a *App) Upload(ctx context.Context, path string, o uploadOptions) error {
	user, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failed(err, "Failed to upload audio")
	}

	duration := o.duration
	if duration <= 0 {
		// Non-WAV files without --duration are published as 0 seconds.
		if h, err := audio.DecodeWAVHeader(data); err == nil {
			duration = h.DurationSeconds()
		}
	}

	memo, err := a.pipeline(o.cleanup).PublishFile(ctx, filepath.Base(path), data, o.title, user.ID, duration)
	if err != nil {
		return failed(err, "Failed to upload audio")
	}

	a.setView(ViewFeed)
	a.success(fmt.Sprintf("Audio uploaded successfully! (%s, %s)", memo.ID, formatDuration(memo.Duration)))
	return nil
}

func newUploadCmd(rt *runtime) *cobra.Command {
	var o uploadOptions
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Publish an existing audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.app.Upload(cmd.Context(), args[0], o)
		},
	}
	cmd.Flags().StringVarP(&o.title, "title", "t", "", "memo title (default \"Untitled memo\")")
	cmd.Flags().IntVar(&o.duration, "duration", 0, "duration in seconds (read from WAV headers when omitted)")
	cmd.Flags().BoolVar(&o.cleanup, "cleanup-orphans", false, "delete the uploaded audio if saving the memo fails")
	return cmd
}
