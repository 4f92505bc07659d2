// Package filelab owns the state of the storage lab: the selected storage
// target, the text buffer shown to the user, and the grid of images found
// in public media storage.
//
// Every load or save goes through the storage gate. A decision to request
// a permission suspends the action until the permission callback arrives;
// a decision to use the document picker suspends it until the picker
// returns a document. Failures are reported, logged and shown as a notice;
// none is retried automatically.
package filelab

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/go-drift/filelab/pkg/errors"
	"github.com/go-drift/filelab/pkg/gate"
	"github.com/go-drift/filelab/pkg/platform"
)

// ErrBusy is returned when a storage action is started while another is in flight.
var ErrBusy = stderrors.New("filelab: another storage action is in progress")

// Device reports the platform version, mount state and app directories.
type Device interface {
	SDKInt() (int, error)
	ExternalStorageState() (string, error)
	Directory(dir platform.AppDirectory) (string, error)
}

// Permissions resolves runtime permissions by platform name.
type Permissions interface {
	Lookup(name string) platform.Permission
}

// DocumentPicker is the system document picker plus content URI access.
type DocumentPicker interface {
	OpenDocument(ctx context.Context, opts platform.OpenDocumentOptions) (platform.StorageResult, error)
	CreateDocument(ctx context.Context, opts platform.CreateDocumentOptions) (platform.StorageResult, error)
	ReadFile(uri string) ([]byte, error)
	WriteFile(uri string, data []byte) error
}

// MediaIndex is the shared image index.
type MediaIndex interface {
	Query(ctx context.Context, mimeType string) ([]platform.MediaEntry, error)
	Insert(ctx context.Context, values platform.MediaValues) (string, error)
	Write(ctx context.Context, uri string, data []byte) error
	SetPending(ctx context.Context, uri string, pending bool) error
}

// Notifier presents notices and the permission rationale dialog.
type Notifier interface {
	// Notify shows a transient notice.
	Notify(n Notice)
	// ShowRationale explains why permission is needed and blocks until the
	// user acknowledges. The dialog cannot be dismissed any other way; an
	// error means ctx ended first.
	ShowRationale(ctx context.Context, permission gate.PermissionKind) error
}

// GridEntry is one image shown in the media grid.
type GridEntry struct {
	Name string
	URI  string
}

// Config wires a Lab to its collaborators. Zero fields fall back to the
// platform singletons, the bundled resources, time.Now and slog.Default.
type Config struct {
	Device      Device
	Permissions Permissions
	Picker      DocumentPicker
	Media       MediaIndex
	Notifier    Notifier
	Resources   fs.FS
	Now         func() time.Time
	Logger      *slog.Logger
}

// Lab is the storage lab controller.
type Lab struct {
	device    Device
	perms     Permissions
	picker    DocumentPicker
	media     MediaIndex
	notifier  Notifier
	resources fs.FS
	now       func() time.Time
	logger    *slog.Logger

	// busy admits one storage action at a time.
	busy sync.Mutex

	mu          sync.Mutex
	target      gate.Target
	content     string
	grid        []GridEntry
	saveEnabled bool
}

// New creates a Lab from cfg.
func New(cfg Config) *Lab {
	l := &Lab{
		device:    cfg.Device,
		perms:     cfg.Permissions,
		picker:    cfg.Picker,
		media:     cfg.Media,
		notifier:  cfg.Notifier,
		resources: cfg.Resources,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
	if l.device == nil {
		l.device = platform.Device
	}
	if l.perms == nil {
		l.perms = platform.StoragePermission
	}
	if l.picker == nil {
		l.picker = platform.Storage
	}
	if l.media == nil {
		l.media = platform.MediaStore
	}
	if l.resources == nil {
		l.resources = BundledResources()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "filelab")
	if l.notifier == nil {
		l.notifier = logNotifier{logger: l.logger}
	}
	return l
}

// Target returns the selected storage target.
func (l *Lab) Target() gate.Target {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

// Content returns the text buffer.
func (l *Lab) Content() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.content
}

// SetContent replaces the text buffer, as the user typing would.
func (l *Lab) SetContent(s string) {
	l.mu.Lock()
	l.content = s
	l.mu.Unlock()
}

// SaveEnabled reports whether the selected target accepts writes.
func (l *Lab) SaveEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveEnabled
}

// Grid returns a copy of the media grid entries.
func (l *Lab) Grid() []GridEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GridEntry, len(l.grid))
	copy(out, l.grid)
	return out
}

// ClearGrid empties the media grid.
func (l *Lab) ClearGrid() {
	l.mu.Lock()
	l.grid = nil
	l.mu.Unlock()
}

// SetTarget makes target current without loading it. The grid is cleared
// and saving is enabled for every target except Resources.
func (l *Lab) SetTarget(target gate.Target) {
	l.mu.Lock()
	l.target = target
	l.grid = nil
	l.saveEnabled = target != gate.Resources
	l.mu.Unlock()
}

// Select makes target current: the grid is cleared, the target's default
// file is loaded, and saving is enabled for every target except Resources.
func (l *Lab) Select(ctx context.Context, target gate.Target) error {
	if !l.busy.TryLock() {
		return ErrBusy
	}
	defer l.busy.Unlock()

	l.SetTarget(target)
	return l.run(ctx, "filelab.Select", target, gate.Read)
}

// Load reads the selected target's default file into the text buffer, or
// refreshes the grid for public media.
func (l *Lab) Load(ctx context.Context) error {
	if !l.busy.TryLock() {
		return ErrBusy
	}
	defer l.busy.Unlock()
	return l.run(ctx, "filelab.Load", l.Target(), gate.Read)
}

// Save writes the text buffer to the selected target. For public media
// it stores the bundled image instead.
func (l *Lab) Save(ctx context.Context) error {
	if !l.busy.TryLock() {
		return ErrBusy
	}
	defer l.busy.Unlock()
	return l.run(ctx, "filelab.Save", l.Target(), gate.Write)
}

// Decide evaluates the gate for target and op against the current device
// state without performing anything.
func (l *Lab) Decide(ctx context.Context, target gate.Target, op gate.Operation) (gate.Decision, error) {
	c, err := l.capability(ctx, target, op)
	if err != nil {
		return gate.Decision{}, err
	}
	return gate.Evaluate(target, op, c), nil
}

// RefreshGrid replaces the grid with the PNG images in the media index.
func (l *Lab) RefreshGrid(ctx context.Context) error {
	entries, err := l.media.Query(ctx, platform.MimeTypePNG)
	if err != nil {
		return err
	}
	grid := make([]GridEntry, 0, len(entries))
	for _, e := range entries {
		grid = append(grid, GridEntry{Name: e.DisplayName, URI: e.URI})
	}
	l.mu.Lock()
	l.grid = grid
	l.mu.Unlock()
	return nil
}

func (l *Lab) run(ctx context.Context, op string, target gate.Target, operation gate.Operation) error {
	defer errors.Recover(op)

	c, err := l.capability(ctx, target, operation)
	if err != nil {
		return l.fail(op, target, errors.KindPlatform, err)
	}

	d := gate.Evaluate(target, operation, c)
	l.logger.Debug("storage decision", "op", op, "target", target.String(),
		"operation", operation.String(), "sdk", c.SDK, "media", c.Media.String(), "decision", d.String())

	if d.Outcome == gate.RequestPermission {
		d, err = l.requestPermission(ctx, d)
		if err != nil {
			return l.fail(op, target, errors.KindPlatform, err)
		}
	}
	if d.Outcome == gate.Blocked {
		return l.fail(op, target, d.Reason, nil)
	}

	if operation == gate.Read {
		err = l.read(ctx, d)
	} else {
		err = l.write(ctx, d, c)
	}
	if err != nil {
		kind := errors.KindOf(err)
		if kind == errors.KindUnknown {
			kind = errors.KindIO
		}
		if operation == gate.Read {
			l.SetContent("")
		}
		return l.fail(op, target, kind, err)
	}

	l.logger.Info("storage action complete", "op", op, "target", target.String(), "route", d.Route.String())
	return nil
}

// capability collects the platform state the gate needs. Mount state and
// permission state are only queried for external targets.
func (l *Lab) capability(ctx context.Context, target gate.Target, op gate.Operation) (gate.Capability, error) {
	var c gate.Capability
	sdk, err := l.device.SDKInt()
	if err != nil {
		return c, err
	}
	c.SDK = sdk
	if !target.External() {
		return c, nil
	}

	state, err := l.device.ExternalStorageState()
	if err != nil {
		return c, err
	}
	c.Media = gate.ParseMountState(state)

	perm := l.perms.Lookup(string(gate.PermissionFor(op)))
	if perm == nil {
		return c, platform.ErrPlatformUnavailable
	}
	status, err := perm.Status(ctx)
	if err != nil {
		return c, err
	}
	if status == platform.PermissionGranted {
		c.Permission = gate.Granted
		return c, nil
	}
	rationale, err := perm.ShouldShowRationale(ctx)
	if err != nil {
		return c, err
	}
	if rationale {
		c.Permission = gate.DeniedShowRationale
	}
	return c, nil
}

// requestPermission shows the rationale when asked to, requests the
// permission and resumes the decision with the result.
func (l *Lab) requestPermission(ctx context.Context, d gate.Decision) (gate.Decision, error) {
	if d.ShowRationale {
		if err := l.notifier.ShowRationale(ctx, d.Permission); err != nil {
			return d, err
		}
	}
	perm := l.perms.Lookup(string(d.Permission))
	if perm == nil {
		return d, platform.ErrPlatformUnavailable
	}
	status, err := perm.Request(ctx)
	if err != nil {
		return d, err
	}
	l.logger.Debug("permission result", "permission", string(d.Permission), "status", string(status))
	return gate.Resume(d, status == platform.PermissionGranted), nil
}

// fail reports a failure, shows its notice and returns it.
func (l *Lab) fail(op string, target gate.Target, kind errors.Kind, err error) error {
	e := errors.New(op, kind, target.String(), err)
	errors.Report(e)
	l.notifier.Notify(Notice{Kind: kind, Target: target.String(), Message: MessageFor(kind)})
	return e
}

// logNotifier is the Notifier used when none is configured. It logs
// notices and acknowledges the rationale immediately.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(notice Notice) {
	n.logger.Info(notice.Message, "kind", notice.Kind.String(), "target", notice.Target)
}

func (n logNotifier) ShowRationale(ctx context.Context, permission gate.PermissionKind) error {
	n.logger.Info(RationaleMessage, "permission", string(permission))
	return ctx.Err()
}
