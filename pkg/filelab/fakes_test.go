package filelab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-drift/filelab/pkg/errors"
	"github.com/go-drift/filelab/pkg/gate"
	"github.com/go-drift/filelab/pkg/platform"
)

var fixedNow = time.Date(2026, 2, 15, 9, 45, 12, 0, time.UTC)

type fakeDevice struct {
	sdk   int
	state string
	dirs  map[platform.AppDirectory]string
}

func (d *fakeDevice) SDKInt() (int, error)                  { return d.sdk, nil }
func (d *fakeDevice) ExternalStorageState() (string, error) { return d.state, nil }
func (d *fakeDevice) Directory(dir platform.AppDirectory) (string, error) {
	path, ok := d.dirs[dir]
	if !ok {
		return "", platform.ErrPlatformUnavailable
	}
	return path, nil
}

// fakePermission answers Request with answer. Like Android, a denial
// makes the next attempt ask for a rationale.
type fakePermission struct {
	name      string
	status    platform.PermissionStatus
	rationale bool
	answer    platform.PermissionStatus
	requests  int
}

func (p *fakePermission) Name() string { return p.name }
func (p *fakePermission) Status(context.Context) (platform.PermissionStatus, error) {
	return p.status, nil
}
func (p *fakePermission) Request(context.Context) (platform.PermissionStatus, error) {
	p.requests++
	p.status = p.answer
	if p.answer == platform.PermissionDenied {
		p.rationale = true
	}
	return p.answer, nil
}
func (p *fakePermission) IsGranted(context.Context) bool { return p.status == platform.PermissionGranted }
func (p *fakePermission) IsDenied(context.Context) bool  { return p.status == platform.PermissionDenied }
func (p *fakePermission) ShouldShowRationale(context.Context) (bool, error) {
	return p.rationale, nil
}
func (p *fakePermission) Listen(func(platform.PermissionStatus)) func() { return func() {} }

type fakePermissions map[string]*fakePermission

func (f fakePermissions) Lookup(name string) platform.Permission {
	if p, ok := f[name]; ok {
		return p
	}
	return nil
}

type fakePicker struct {
	open      platform.StorageResult
	create    platform.StorageResult
	err       error
	files     map[string][]byte
	lastTitle string
	// block, when set, is received from before the picker answers.
	block     chan struct{}
	entered   chan struct{}
}

func (p *fakePicker) wait(ctx context.Context) error {
	if p.block == nil {
		return nil
	}
	close(p.entered)
	select {
	case <-p.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakePicker) OpenDocument(ctx context.Context, _ platform.OpenDocumentOptions) (platform.StorageResult, error) {
	if err := p.wait(ctx); err != nil {
		return platform.StorageResult{}, err
	}
	return p.open, p.err
}

func (p *fakePicker) CreateDocument(ctx context.Context, opts platform.CreateDocumentOptions) (platform.StorageResult, error) {
	p.lastTitle = opts.Title
	if err := p.wait(ctx); err != nil {
		return platform.StorageResult{}, err
	}
	return p.create, p.err
}

func (p *fakePicker) ReadFile(uri string) ([]byte, error) {
	data, ok := p.files[uri]
	if !ok {
		return nil, errors.ErrFileNotFound
	}
	return data, nil
}

func (p *fakePicker) WriteFile(uri string, data []byte) error {
	if p.files == nil {
		p.files = make(map[string][]byte)
	}
	p.files[uri] = data
	return nil
}

type fakeMediaEntry struct {
	platform.MediaEntry
	pending bool
	data    []byte
}

type fakeMedia struct {
	mu          sync.Mutex
	entries     []*fakeMediaEntry
	insertErr   error
	inserted    []platform.MediaValues
	pendingSets int
}

func (m *fakeMedia) Query(_ context.Context, mimeType string) ([]platform.MediaEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []platform.MediaEntry
	for _, e := range m.entries {
		if !e.pending && e.MimeType == mimeType {
			out = append(out, e.MediaEntry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (m *fakeMedia) Insert(_ context.Context, v platform.MediaValues) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return "", m.insertErr
	}
	m.inserted = append(m.inserted, v)
	id := int64(len(m.entries) + 1)
	e := &fakeMediaEntry{
		MediaEntry: platform.MediaEntry{
			ID:          id,
			URI:         fmt.Sprintf("content://media/external/images/media/%d", id),
			DisplayName: v.DisplayName,
			MimeType:    v.MimeType,
		},
		pending: v.Pending,
	}
	m.entries = append(m.entries, e)
	return e.URI, nil
}

func (m *fakeMedia) find(uri string) *fakeMediaEntry {
	for _, e := range m.entries {
		if e.URI == uri {
			return e
		}
	}
	return nil
}

func (m *fakeMedia) Write(_ context.Context, uri string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(uri)
	if e == nil {
		return errors.ErrFileNotFound
	}
	e.data = data
	return nil
}

func (m *fakeMedia) SetPending(_ context.Context, uri string, pending bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(uri)
	if e == nil {
		return errors.ErrFileNotFound
	}
	e.pending = pending
	m.pendingSets++
	return nil
}

type fakeNotifier struct {
	notices    []Notice
	rationales []gate.PermissionKind
}

func (n *fakeNotifier) Notify(notice Notice) { n.notices = append(n.notices, notice) }
func (n *fakeNotifier) ShowRationale(_ context.Context, p gate.PermissionKind) error {
	n.rationales = append(n.rationales, p)
	return nil
}

// labFixture is a Lab wired to fakes, with device directories under a
// temporary root.
type labFixture struct {
	lab      *Lab
	device   *fakeDevice
	read     *fakePermission
	write    *fakePermission
	picker   *fakePicker
	media    *fakeMedia
	notifier *fakeNotifier
}

func newFixture(t *testing.T, sdk int) *labFixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	errors.SetHandler(&errors.LogHandler{Logger: quiet})
	t.Cleanup(func() { errors.SetHandler(nil) })

	f := &labFixture{
		device: &fakeDevice{
			sdk:   sdk,
			state: platform.MediaMounted,
			dirs: map[platform.AppDirectory]string{
				platform.AppDirectoryFiles:           t.TempDir(),
				platform.AppDirectoryExternalFiles:   t.TempDir(),
				platform.AppDirectoryExternalStorage: t.TempDir(),
			},
		},
		read:     &fakePermission{name: platform.PermissionNameReadStorage, status: platform.PermissionNotDetermined, answer: platform.PermissionGranted},
		write:    &fakePermission{name: platform.PermissionNameWriteStorage, status: platform.PermissionNotDetermined, answer: platform.PermissionGranted},
		picker:   &fakePicker{},
		media:    &fakeMedia{},
		notifier: &fakeNotifier{},
	}
	f.lab = New(Config{
		Device: f.device,
		Permissions: fakePermissions{
			f.read.name:  f.read,
			f.write.name: f.write,
		},
		Picker:   f.picker,
		Media:    f.media,
		Notifier: f.notifier,
		Now:      func() time.Time { return fixedNow },
		Logger:   quiet,
	})
	return f
}
