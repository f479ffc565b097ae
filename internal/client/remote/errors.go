package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrUnavailable = errors.New("server unavailable")

// mapError turns a gRPC status back into the shared sentinels so callers
// can use errors.Is regardless of transport.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.Unauthenticated:
		if msg == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %s", common.ErrUnauthenticated, msg)
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, msg)
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, msg)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, msg)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrorForbidden, msg)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, msg)
	case codes.Internal:
		return common.ErrorInternal
	default:
		return err
	}
}
