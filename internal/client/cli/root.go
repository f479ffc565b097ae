package cli

import (
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/voicefeed/internal/client/config"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/spf13/cobra"
)

// Options configure the command tree. Zero values mean the process
// streams and the remote backend.
type Options struct {
	Connect Connector
	In      io.Reader
	Out     io.Writer
	// Logger overrides the --verbose stderr logger.
	Logger logging.Logger
}

// runtime holds the App once the root command has built it. Every command
// in the tree, and every tree the shell builds, shares it.
type runtime struct {
	opts    Options
	app     *App
	verbose bool
	inShell bool
}

func newRuntime(o Options) *runtime {
	if o.Connect == nil {
		o.Connect = RemoteConnector
	}
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	return &runtime{opts: o}
}

func (rt *runtime) logger() logging.Logger {
	switch {
	case rt.opts.Logger != nil:
		return rt.opts.Logger
	case rt.verbose:
		return logging.NewJSONLogger(os.Stderr, "debug")
	default:
		return logging.Discard()
	}
}

// ensureApp loads configuration (defaults, JSON file, flags) and connects.
// It runs once per process.
func (rt *runtime) ensureApp(cmd *cobra.Command) error {
	if rt.app != nil {
		return nil
	}

	fs := cmd.Flags()
	cfg, err := config.LoadConfig(config.ConfigPath(fs))
	if err != nil {
		return err
	}
	if err := config.ApplyFlags(fs, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return failed(err, "Invalid configuration")
	}

	l := rt.logger()
	conn, err := rt.opts.Connect(cfg, l)
	if err != nil {
		return err
	}
	rt.app = NewApp(cfg, conn, l, rt.opts.In, rt.opts.Out)
	return nil
}

func (rt *runtime) close() {
	if rt.app != nil {
		_ = rt.app.Close()
	}
}

func (rt *runtime) rootCmd() *cobra.Command {
	defaults := &config.Config{}
	defaults.LoadDefaults()

	cmd := &cobra.Command{
		Use:           "voicefeed",
		Short:         "Record, publish and listen to voice memos",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.ensureApp(cmd)
		},
	}
	cmd.SetIn(rt.opts.In)
	cmd.SetOut(rt.opts.Out)
	cmd.SetErr(rt.opts.Out)

	config.RegisterFlags(cmd.PersistentFlags(), defaults)
	cmd.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(
		newRegisterCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newOnboardCmd(rt),
		newRecordCmd(rt),
		newUploadCmd(rt),
		newFeedCmd(rt),
		newLikeCmd(rt),
	)
	if !rt.inShell {
		cmd.AddCommand(newShellCmd(rt))
	}
	return cmd
}

// NewRootCmd builds the voicefeed command tree.
func NewRootCmd(o Options) *cobra.Command {
	return newRuntime(o).rootCmd()
}

// Execute runs the CLI with args and returns the process exit code.
// Failures are printed as a toast on the configured output.
func Execute(ctx context.Context, args []string, o Options) int {
	rt := newRuntime(o)
	defer rt.close()

	cmd := rt.rootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		printToast(rt.opts.Out, err)
		return 1
	}
	return 0
}
