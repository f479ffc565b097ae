package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/voicefeed/internal/capture"
	"github.com/dmitrijs2005/voicefeed/internal/client/remote"
	"github.com/dmitrijs2005/voicefeed/internal/common"
)

// commandError carries the notice a command shows when err has no
// more specific message.
type commandError struct {
	notice string
	err    error
}

func (e *commandError) Error() string { return e.notice + ": " + e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func failed(err error, notice string) error {
	if err == nil {
		return nil
	}
	return &commandError{notice: notice, err: err}
}

// reportedError was already shown to the user; only the exit status is left.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// notices maps sentinels to what the user can do about them. Order matters:
// the first match wins.
var notices = []struct {
	err error
	msg string
}{
	{errInvalidCredentials, "Invalid email or password"},
	{common.ErrTokenExpired, "Your session has expired. Run login again"},
	{common.ErrRefreshTokenExpired, "Your session has expired. Run login again"},
	{common.ErrUnauthenticated, "You are not signed in. Run login first"},
	{common.ErrPermissionDenied, "Microphone access was denied. Allow access and try again"},
	{common.ErrCaptureUnavailable, "Audio recording is not available here. Try record --from <file> or upload <file>"},
	{common.ErrCaptureEmpty, "Nothing was recorded"},
	{common.ErrSessionActive, "A recording is already in progress"},
	{capture.ErrCanceled, "Recording cancelled"},
	{remote.ErrUnavailable, "The server is unreachable. Check --server and try again"},
	{context.Canceled, "Cancelled"},
}

// Toast renders err as one line. It never includes stack traces or more
// than the first line of a wrapped message.
func Toast(err error) string {
	if err == nil {
		return ""
	}

	for _, n := range notices {
		if errors.Is(err, n.err) {
			return "error: " + n.msg
		}
	}

	var ce *commandError
	if errors.As(err, &ce) {
		if errors.Is(err, common.ErrorValidation) || errors.Is(err, common.ErrorAlreadyExists) {
			return "error: " + ce.notice + ": " + detail(ce.err)
		}
		return "error: " + ce.notice
	}

	return "error: " + firstLine(err.Error())
}

// detail strips the sentinel prefix from "%w: detail" messages.
func detail(err error) string {
	msg := firstLine(err.Error())
	for _, s := range []error{common.ErrorValidation, common.ErrorAlreadyExists} {
		msg = strings.TrimPrefix(msg, s.Error()+": ")
	}
	return msg
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (a *App) success(msg string) { fmt.Fprintln(a.out, "ok: "+msg) }
func (a *App) info(msg string)    { fmt.Fprintln(a.out, "info: "+msg) }

// toast prints err and logs it at debug level with full detail.
func (a *App) toast(err error) {
	a.logger.Debug(context.Background(), "command failed", "err", err)
	printToast(a.out, err)
}

func printToast(w io.Writer, err error) {
	if err == nil {
		return
	}
	var rep reportedError
	if errors.As(err, &rep) {
		return
	}
	fmt.Fprintln(w, Toast(err))
}
