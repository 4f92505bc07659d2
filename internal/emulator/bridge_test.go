package emulator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-drift/filelab/pkg/errors"
	"github.com/go-drift/filelab/pkg/filelab"
	"github.com/go-drift/filelab/pkg/gate"
	"github.com/go-drift/filelab/pkg/platform"
)

type recordingNotifier struct {
	notices    []filelab.Notice
	rationales int
}

func (n *recordingNotifier) Notify(notice filelab.Notice) { n.notices = append(n.notices, notice) }
func (n *recordingNotifier) ShowRationale(context.Context, gate.PermissionKind) error {
	n.rationales++
	return nil
}

type device struct {
	bridge   *Bridge
	prompter *ScriptedPrompter
	notifier *recordingNotifier
	lab      *filelab.Lab
}

func newDevice(t *testing.T, profile Profile) *device {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	errors.SetHandler(&errors.LogHandler{Logger: quiet})
	t.Cleanup(func() { errors.SetHandler(nil) })

	if profile.AppID == "" {
		profile.AppID = "dev.drift.filelab"
	}
	if profile.ExternalStorage == "" {
		profile.ExternalStorage = platform.MediaMounted
	}
	prompter := &ScriptedPrompter{Answers: map[string]platform.PermissionResult{}}
	bridge, err := New(t.TempDir(), profile, prompter)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { bridge.Close() })
	platform.SetupTestBridge(t.Cleanup, bridge)

	notifier := &recordingNotifier{}
	return &device{
		bridge:   bridge,
		prompter: prompter,
		notifier: notifier,
		lab:      filelab.New(filelab.Config{Notifier: notifier, Logger: quiet}),
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"ok", Profile{AppID: "a", SDK: 30, ExternalStorage: "mounted"}, false},
		{"no app", Profile{SDK: 30, ExternalStorage: "mounted"}, true},
		{"bad sdk", Profile{AppID: "a", SDK: 0, ExternalStorage: "mounted"}, true},
		{"bad state", Profile{AppID: "a", SDK: 30, ExternalStorage: "melted"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.profile.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstallTimePermissions(t *testing.T) {
	old := Profile{SDK: 22}
	if s := old.initialStatus(platform.PermissionNameWriteStorage); s != platform.PermissionGranted {
		t.Errorf("SDK 22 status = %s, want granted", s)
	}
	current := Profile{SDK: 23}
	if s := current.initialStatus(platform.PermissionNameWriteStorage); s != platform.PermissionNotDetermined {
		t.Errorf("SDK 23 status = %s, want not_determined", s)
	}
}

func TestLayoutPaths(t *testing.T) {
	d := newDevice(t, Profile{SDK: 30})
	l := d.bridge.Layout()
	for _, dir := range []string{l.FilesDir(), l.ExternalFilesDir(), l.PicturesDir(), l.DownloadDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not prepared: %v", dir, err)
		}
	}
	if !strings.HasSuffix(l.ExternalFilesDir(), filepath.Join("Android", "data", "dev.drift.filelab", "files")) {
		t.Errorf("external files dir = %s", l.ExternalFilesDir())
	}
	if _, err := l.sharedPath("../outside"); err == nil {
		t.Error("escaping path should be rejected")
	}
}

func TestInternalAndPrivateRoundTrip(t *testing.T) {
	for _, target := range []gate.Target{gate.InternalStorage, gate.PrivateExternalStorage} {
		t.Run(target.String(), func(t *testing.T) {
			d := newDevice(t, Profile{SDK: 30})
			ctx := context.Background()

			if err := d.lab.Select(ctx, target); errors.KindOf(err) != errors.KindFileNotFound {
				t.Fatalf("first Select = %v, want file not found", err)
			}
			d.lab.SetContent("round trip")
			if err := d.lab.Save(ctx); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := d.lab.Select(ctx, target); err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got := d.lab.Content(); got != "round trip" {
				t.Errorf("content = %q", got)
			}
			if len(d.prompter.Asked) != 0 {
				t.Errorf("unexpected permission prompts %v", d.prompter.Asked)
			}
		})
	}
}

func TestPublicMediaOnIsolatedDevice(t *testing.T) {
	d := newDevice(t, Profile{SDK: 30})
	ctx := context.Background()

	if err := d.lab.Select(ctx, gate.PublicMediaStorage); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := d.lab.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	grid := d.lab.Grid()
	if len(grid) != 1 || !strings.HasPrefix(grid[0].Name, "andy_") || !strings.HasPrefix(grid[0].URI, MediaURIPrefix) {
		t.Fatalf("grid = %+v", grid)
	}
	data, err := os.ReadFile(filepath.Join(d.bridge.Layout().PicturesDir(), grid[0].Name))
	if err != nil {
		t.Fatalf("image file: %v", err)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Error("image is not a PNG")
	}
}

func TestPermissionDeniedTwice(t *testing.T) {
	d := newDevice(t, Profile{SDK: 26})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := d.lab.Select(ctx, gate.PublicMediaStorage); errors.KindOf(err) != errors.KindPermissionDenied {
			t.Fatalf("attempt %d: err = %v, want permission denied", i, err)
		}
	}
	if len(d.prompter.Asked) != 2 {
		t.Errorf("prompts = %v, want 2", d.prompter.Asked)
	}
	if d.notifier.rationales != 1 {
		t.Errorf("rationales = %d, want 1", d.notifier.rationales)
	}
	if s := d.bridge.PermissionStatus(platform.PermissionNameReadStorage); s != platform.PermissionDenied {
		t.Errorf("status = %s", s)
	}
}

func TestPermanentDenialNeverPrompts(t *testing.T) {
	d := newDevice(t, Profile{SDK: 26})
	d.prompter.Answers[platform.PermissionNameWriteStorage] = platform.PermissionPermanentlyDenied
	ctx := context.Background()

	// Reading is denied too; this only selects the target.
	if err := d.lab.Select(ctx, gate.PublicMediaStorage); errors.KindOf(err) != errors.KindPermissionDenied {
		t.Fatalf("Select = %v, want permission denied", err)
	}
	d.prompter.Asked = nil

	for i := 0; i < 2; i++ {
		if err := d.lab.Save(ctx); errors.KindOf(err) != errors.KindPermissionDenied {
			t.Fatalf("Save = %v, want permission denied", err)
		}
	}
	if len(d.prompter.Asked) != 1 {
		t.Errorf("prompts = %v, want exactly one", d.prompter.Asked)
	}
	if d.notifier.rationales != 0 {
		t.Errorf("rationales = %d, want 0", d.notifier.rationales)
	}
}

func TestPublicOtherPicker(t *testing.T) {
	d := newDevice(t, Profile{SDK: 30})
	d.prompter.Document = "Download/notes.txt"
	ctx := context.Background()

	// The document does not exist yet.
	if err := d.lab.Select(ctx, gate.PublicOtherStorage); errors.KindOf(err) != errors.KindFileNotFound {
		t.Fatalf("Select = %v, want file not found", err)
	}
	d.lab.SetContent("picked")
	if err := d.lab.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(d.bridge.Layout().DownloadDir(), "notes.txt"))
	if err != nil || string(data) != "picked" {
		t.Fatalf("document = %q, %v", data, err)
	}
	if err := d.lab.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.lab.Content() != "picked" {
		t.Errorf("content = %q", d.lab.Content())
	}

	last := d.prompter.Picked[len(d.prompter.Picked)-2]
	if !last.Create || !strings.HasPrefix(last.Title, "public_other_storage_") {
		t.Errorf("create request = %+v", last)
	}
}

func TestPickerCancelled(t *testing.T) {
	d := newDevice(t, Profile{SDK: 30})
	d.lab.SetContent("stale")
	if err := d.lab.Select(context.Background(), gate.PublicOtherStorage); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d.lab.Content() != "" {
		t.Errorf("content = %q, want empty", d.lab.Content())
	}
}

func TestNoPicker(t *testing.T) {
	d := newDevice(t, Profile{SDK: 30, NoPicker: true})
	err := d.lab.Select(context.Background(), gate.PublicOtherStorage)
	if errors.KindOf(err) != errors.KindNoHandler {
		t.Fatalf("err = %v, want no handler", err)
	}
	if len(d.notifier.notices) != 1 || d.notifier.notices[0].Kind != errors.KindNoHandler {
		t.Errorf("notices = %+v", d.notifier.notices)
	}
}

func TestLegacyDownloadWithInstallPermissions(t *testing.T) {
	d := newDevice(t, Profile{SDK: 16})
	ctx := context.Background()

	if err := d.lab.Select(ctx, gate.PublicOtherStorage); errors.KindOf(err) != errors.KindFileNotFound {
		t.Fatalf("Select = %v", err)
	}
	d.lab.SetContent("legacy")
	if err := d.lab.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(d.bridge.Layout().DownloadDir(), filelab.PublicOtherFileName))
	if err != nil || string(data) != "legacy" {
		t.Fatalf("file = %q, %v", data, err)
	}
	if len(d.prompter.Asked) != 0 {
		t.Errorf("install-time permissions should not prompt: %v", d.prompter.Asked)
	}
}

func TestUnmountedStorage(t *testing.T) {
	d := newDevice(t, Profile{SDK: 30, ExternalStorage: platform.MediaUnmounted})
	err := d.lab.Select(context.Background(), gate.PrivateExternalStorage)
	if errors.KindOf(err) != errors.KindMediaUnavailable {
		t.Fatalf("err = %v, want media unavailable", err)
	}
}

func TestDialogFailureFailsAction(t *testing.T) {
	tests := []struct {
		name     string
		sdk      int
		target   gate.Target
		save     bool
		wantKind errors.Kind
	}{
		{"permission dialog", 26, gate.PublicMediaStorage, true, errors.KindPlatform},
		{"document picker", 30, gate.PublicOtherStorage, false, errors.KindIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDevice(t, Profile{SDK: tt.sdk})
			d.prompter.Err = io.ErrUnexpectedEOF
			ctx := context.Background()

			var err error
			if tt.save {
				d.lab.SetTarget(tt.target)
				err = d.lab.Save(ctx)
			} else {
				err = d.lab.Select(ctx, tt.target)
			}
			if err == nil {
				t.Fatal("action should fail when the dialog fails")
			}
			if len(d.notifier.notices) != 1 || d.notifier.notices[0].Kind != tt.wantKind {
				t.Errorf("notices = %+v, want one %s", d.notifier.notices, tt.wantKind)
			}
			if got := d.bridge.PermissionStatus(platform.PermissionNameWriteStorage); got != platform.PermissionNotDetermined {
				t.Errorf("write permission = %s, want unchanged", got)
			}
		})
	}
}

func TestCloseEndsEventStreams(t *testing.T) {
	d := newDevice(t, Profile{SDK: 30})

	var got []platform.PermissionStatus
	unsubscribe := platform.StoragePermission.Read.Listen(func(s platform.PermissionStatus) { got = append(got, s) })
	defer unsubscribe()

	if err := d.bridge.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(d.bridge.streams) != 0 {
		t.Errorf("streams still running: %v", d.bridge.streams)
	}

	data, err := platform.DefaultCodec.Encode(map[string]any{
		"permission": platform.PermissionNameReadStorage,
		"status":     "granted",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := platform.HandleEvent("drift/permissions/changes", data); err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("listener called after Close: %v", got)
	}
}
