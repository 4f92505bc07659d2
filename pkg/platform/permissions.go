package platform

import (
	"context"
	"sync"
	"time"

	"github.com/go-drift/filelab/pkg/errors"
)

// PermissionResult represents the status of a permission.
type PermissionResult string

// Permission status constants.
const (
	// PermissionGranted indicates access has been granted.
	PermissionGranted PermissionResult = "granted"

	// PermissionDenied indicates the user denied the permission. The app may request again.
	PermissionDenied PermissionResult = "denied"

	// PermissionPermanentlyDenied indicates the user denied with "don't ask again".
	// The app cannot request again; direct the user to Settings.
	PermissionPermanentlyDenied PermissionResult = "permanently_denied"

	// PermissionNotDetermined indicates the user has not yet been asked. Calling Request()
	// will show the system permission dialog.
	PermissionNotDetermined PermissionResult = "not_determined"

	// PermissionResultUnknown indicates the status could not be determined.
	PermissionResultUnknown PermissionResult = "unknown"
)

// PermissionStatus is an alias for PermissionResult for naming consistency.
type PermissionStatus = PermissionResult

// DefaultPermissionTimeout is the default timeout for permission requests.
const DefaultPermissionTimeout = 30 * time.Second

// isTerminalStatus returns true if showing a permission dialog cannot
// change the status.
func isTerminalStatus(status PermissionResult) bool {
	return status == PermissionGranted || status == PermissionPermanentlyDenied
}

// Permission provides access to a runtime permission.
//
// The ctx parameter bounds the blocking Request call. For the non-blocking
// methods ctx is accepted for API consistency but not used.
type Permission interface {
	// Name returns the platform name of the permission.
	Name() string

	// Status returns the current permission status.
	Status(ctx context.Context) (PermissionStatus, error)

	// Request prompts the user for permission and blocks until they respond
	// or the context is canceled/times out. If already in a terminal state,
	// returns immediately without showing a dialog.
	Request(ctx context.Context) (PermissionStatus, error)

	// IsGranted returns true if permission is granted.
	// Best-effort convenience: returns false on any error.
	IsGranted(ctx context.Context) bool

	// IsDenied returns true if permission is denied or permanently denied.
	// Best-effort convenience: returns false on any error.
	IsDenied(ctx context.Context) bool

	// ShouldShowRationale returns whether to explain the permission before
	// requesting it.
	ShouldShowRationale(ctx context.Context) (bool, error)

	// Listen subscribes to permission status changes.
	// Returns an unsubscribe function. Multiple listeners receive all events.
	Listen(handler func(PermissionStatus)) (unsubscribe func())
}

var (
	permissionChangesOnce    sync.Once
	permissionChangesChannel *EventChannel
)

func getPermissionChangesChannel() *EventChannel {
	permissionChangesOnce.Do(func() {
		permissionChangesChannel = NewEventChannel("drift/permissions/changes")
	})
	return permissionChangesChannel
}

// permissionType implements Permission for a single named permission.
type permissionType struct {
	name    string
	channel *MethodChannel
	changes *EventChannel
	stream  *Stream[permissionChange]

	// Only one dialog can be shown at a time.
	requestMu sync.Mutex
}

func newPermission(name string) *permissionType {
	changes := getPermissionChangesChannel()
	return &permissionType{
		name:    name,
		channel: NewMethodChannel("drift/permissions"),
		changes: changes,
		stream:  NewStream(changes, "PermissionChange", parsePermissionChange),
	}
}

func (p *permissionType) Name() string {
	return p.name
}

func (p *permissionType) Status(ctx context.Context) (PermissionStatus, error) {
	result, err := p.channel.Invoke("check", map[string]any{
		"permission": p.name,
	})
	if err != nil {
		return PermissionResultUnknown, err
	}
	return parsePermissionResult(result), nil
}

func (p *permissionType) Request(ctx context.Context) (PermissionStatus, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPermissionTimeout)
		defer cancel()
	}

	p.requestMu.Lock()
	defer p.requestMu.Unlock()

	currentStatus, err := p.Status(ctx)
	if err != nil {
		return PermissionResultUnknown, err
	}
	if isTerminalStatus(currentStatus) {
		return currentStatus, nil
	}

	// Subscribe before triggering the native request so the result event
	// cannot be missed.
	resultChan := make(chan PermissionResult, 1)
	errChan := make(chan error, 1)
	sub := p.changes.Listen(EventHandler{
		OnEvent: func(data any) {
			change, ok := parsePermissionChange(data)
			if ok && change.Permission == p.name {
				select {
				case resultChan <- change.Result:
				default:
				}
			}
		},
		OnError: func(err error) {
			select {
			case errChan <- err:
			default:
			}
		},
		OnDone: func() {
			select {
			case errChan <- ErrClosed:
			default:
			}
		},
	})
	defer sub.Cancel()

	_, err = p.channel.Invoke("request", map[string]any{"permission": p.name})
	if err != nil {
		return PermissionResultUnknown, err
	}

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errChan:
		errors.Report(&errors.Error{
			Op:      "permissions.request",
			Kind:    errors.KindPlatform,
			Channel: "drift/permissions/changes",
			Err:     err,
		})
		return PermissionResultUnknown, err
	case <-ctx.Done():
		// Re-check status in case the event was missed.
		if finalStatus, err := p.Status(ctx); err == nil && isTerminalStatus(finalStatus) {
			return finalStatus, nil
		}
		if ctx.Err() == context.DeadlineExceeded {
			return PermissionResultUnknown, ErrTimeout
		}
		return PermissionResultUnknown, ErrCanceled
	}
}

func (p *permissionType) IsGranted(ctx context.Context) bool {
	status, err := p.Status(ctx)
	return err == nil && status == PermissionGranted
}

func (p *permissionType) IsDenied(ctx context.Context) bool {
	status, err := p.Status(ctx)
	if err != nil {
		return false
	}
	return status == PermissionDenied || status == PermissionPermanentlyDenied
}

func (p *permissionType) ShouldShowRationale(ctx context.Context) (bool, error) {
	result, err := p.channel.Invoke("shouldShowRationale", map[string]any{
		"permission": p.name,
	})
	if err != nil {
		return false, err
	}
	if m := parseMap(result); m != nil {
		return parseBool(m["shouldShow"]), nil
	}
	return false, nil
}

func (p *permissionType) Listen(handler func(PermissionStatus)) (unsubscribe func()) {
	return p.stream.Listen(func(change permissionChange) {
		if change.Permission == p.name {
			handler(change.Result)
		}
	})
}

// permissionChange represents a permission status change event.
type permissionChange struct {
	Permission string
	Result     PermissionResult
}

func parsePermissionResult(result any) PermissionResult {
	if m := parseMap(result); m != nil {
		if status := parseString(m["status"]); status != "" {
			return PermissionResult(status)
		}
	}
	return PermissionResultUnknown
}

func parsePermissionChange(data any) (permissionChange, bool) {
	m := parseMap(data)
	if m == nil {
		return permissionChange{}, false
	}
	return permissionChange{
		Permission: parseString(m["permission"]),
		Result:     PermissionResult(parseString(m["status"])),
	}, true
}
