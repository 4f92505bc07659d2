package filelab

import "github.com/go-drift/filelab/pkg/errors"

// Notice is a transient user-visible message.
type Notice struct {
	Kind    errors.Kind
	Target  string
	Message string
}

// MessageFor returns the user-facing text for a failure kind.
func MessageFor(kind errors.Kind) string {
	switch kind {
	case errors.KindFileNotFound:
		return "File not found"
	case errors.KindIO:
		return "Error while accessing the file"
	case errors.KindMediaUnavailable:
		return "External memory is not mounted"
	case errors.KindPermissionDenied:
		return "Permission denied"
	case errors.KindNoHandler:
		return "There is no app available to perform this action"
	case errors.KindReadOnly:
		return "Resources cannot be overwritten"
	default:
		return "Storage operation failed"
	}
}

// RationaleTitle and RationaleMessage explain why storage access is requested.
const (
	RationaleTitle   = "Storage access"
	RationaleMessage = "Access to external storage is required to read and write the selected file."
)
