package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/voicefeed/internal/feed"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/spf13/cobra"
)

func renderFeed(w io.Writer, s *feed.Snapshot) {
	if s.Len() == 0 {
		fmt.Fprintln(w, "No voice memos yet. Record one with: record")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tLENGTH\tLIKES\tCOMMENTS\tPOSTED")
	for _, m := range s.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			m.ID, m.Title, m.Author.DisplayName, formatDuration(m.Duration),
			m.LikesCount, m.CommentsCount, m.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func (a *App) newReader(opts ...feed.Option) *feed.Reader {
	opts = append([]feed.Option{feed.WithLogger(logging.ForModule(a.logger, "feed"))}, opts...)
	return feed.New(a.backend, opts...)
}

// Feed prints the published memos once.
func (a *App) Feed(ctx context.Context) error {
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	snap, err := a.newReader().Refresh(ctx)
	if err != nil {
		return failed(err, "Failed to load voice memos")
	}
	a.setView(ViewFeed)
	renderFeed(a.out, snap)
	return nil
}

// WatchFeed reprints the feed on every change until Enter is pressed or
// ctx ends. Refresh failures are shown and watching continues.
func (a *App) WatchFeed(ctx context.Context) error {
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}
	a.setView(ViewFeed)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := a.newReader(
		feed.OnUpdate(func(s *feed.Snapshot) {
			fmt.Fprintf(a.out, "\n-- feed updated %s --\n", s.FetchedAt().Local().Format("15:04:05"))
			renderFeed(a.out, s)
		}),
		feed.OnError(func(err error) {
			a.toast(failed(err, "Failed to load voice memos"))
		}),
	)

	fmt.Fprintln(a.out, "Watching the feed. Press Enter to stop.")
	enter := a.readLine()
	go func() {
		if err := <-enter; err == nil {
			cancel()
		}
	}()

	if err := r.Run(ctx); err != nil {
		return failed(err, "Failed to load voice memos")
	}
	return nil
}

// Like adds a like to a memo.
func (a *App) Like(ctx context.Context, memoID string) error {
	if err := a.newReader().Like(ctx, memoID); err != nil {
		return failed(err, "Failed to like voice memo")
	}
	a.success("Liked " + memoID)
	return nil
}

func newFeedCmd(rt *runtime) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show published voice memos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch {
				return rt.app.WatchFeed(cmd.Context())
			}
			return rt.app.Feed(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the feed open and refresh it on changes")
	return cmd
}

func newLikeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like a voice memo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.app.Like(cmd.Context(), args[0])
		},
	}
}
