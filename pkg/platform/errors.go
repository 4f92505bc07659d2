package platform

import (
	stderrors "errors"
	"fmt"

	"github.com/go-drift/filelab/pkg/errors"
)

// ErrClosed is returned when operating on a closed channel or stream, and
// when a stream ends while a request waits on it.
var ErrClosed = stderrors.New("platform: channel closed")

// storageError maps a native ChannelError onto the storage error sentinels
// so callers can classify it with errors.KindOf. Other errors pass through.
func storageError(err error) error {
	var ce *ChannelError
	if !stderrors.As(err, &ce) {
		return err
	}
	var sentinel error
	switch ce.Code {
	case CodeNotFound:
		sentinel = errors.ErrFileNotFound
	case CodeIOError:
		sentinel = errors.ErrIO
	case CodeNoHandler:
		sentinel = errors.ErrNoHandler
	case CodeDenied:
		sentinel = errors.ErrPermissionDenied
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, ce)
}
