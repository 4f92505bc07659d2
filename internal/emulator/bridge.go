package emulator

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-drift/filelab/pkg/platform"
)

// DocumentURIPrefix prefixes the content URI of documents in shared storage.
const DocumentURIPrefix = "content://com.android.externalstorage.documents/document/primary:"

// Bridge is a platform.NativeBridge backed by the local filesystem.
type Bridge struct {
	profile  Profile
	layout   Layout
	media    *MediaIndex
	prompter Prompter
	logger   *slog.Logger

	mu        sync.Mutex
	status    map[string]platform.PermissionResult
	rationale map[string]bool
	streams   map[string]bool
}

// New prepares the layout under root for profile and opens the media index.
func New(root string, profile Profile, prompter Prompter) (*Bridge, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	layout := Layout{Root: root, AppID: profile.AppID}
	if err := layout.Prepare(); err != nil {
		return nil, err
	}
	media, err := OpenMediaIndex(layout.MediaDB(), layout.PicturesDir())
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		profile:   profile,
		layout:    layout,
		media:     media,
		prompter:  prompter,
		logger:    slog.Default().With("component", "emulator"),
		status:    make(map[string]platform.PermissionResult),
		rationale: make(map[string]bool),
		streams:   make(map[string]bool),
	}
	for _, name := range []string{platform.PermissionNameReadStorage, platform.PermissionNameWriteStorage} {
		b.status[name] = profile.initialStatus(name)
		b.rationale[name] = profile.Rationale[name]
	}
	return b, nil
}

// Layout returns the directory layout of the device.
func (b *Bridge) Layout() Layout {
	return b.layout
}

// Media returns the image index.
func (b *Bridge) Media() *MediaIndex {
	return b.media
}

// Close ends every running event stream and releases the media index.
func (b *Bridge) Close() error {
	b.mu.Lock()
	running := make([]string, 0, len(b.streams))
	for channel := range b.streams {
		running = append(running, channel)
	}
	clear(b.streams)
	b.mu.Unlock()

	var errs []error
	for _, channel := range running {
		errs = append(errs, platform.HandleEventDone(channel))
	}
	errs = append(errs, b.media.Close())
	return stderrors.Join(errs...)
}

// PermissionStatus returns the current status of the named permission.
func (b *Bridge) PermissionStatus(name string) platform.PermissionResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.status[name]; ok {
		return s
	}
	return platform.PermissionResultUnknown
}

// InvokeMethod implements platform.NativeBridge.
func (b *Bridge) InvokeMethod(channel, method string, argsData []byte) ([]byte, error) {
	decoded, err := platform.DefaultCodec.Decode(argsData)
	if err != nil {
		return nil, err
	}
	args, _ := decoded.(map[string]any)

	var result any
	switch channel {
	case "drift/device":
		result, err = b.device(method, args)
	case "drift/permissions":
		result, err = b.permissions(method, args)
	case "drift/storage":
		result, err = b.storage(method, args)
	case "drift/mediastore":
		result, err = b.mediaStore(method, args)
	default:
		err = platform.ErrChannelNotFound
	}
	if err != nil {
		b.logger.Debug("native call failed", "channel", channel, "method", method, "err", err)
		return nil, err
	}
	return platform.DefaultCodec.Encode(result)
}

// StartEventStream implements platform.NativeBridge.
func (b *Bridge) StartEventStream(channel string) error {
	b.mu.Lock()
	b.streams[channel] = true
	b.mu.Unlock()
	return nil
}

// StopEventStream implements platform.NativeBridge.
func (b *Bridge) StopEventStream(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.streams[channel] {
		return platform.ErrClosed
	}
	delete(b.streams, channel)
	return nil
}

// emit delivers an event if its stream is running.
func (b *Bridge) emit(channel string, event map[string]any) error {
	b.mu.Lock()
	running := b.streams[channel]
	b.mu.Unlock()
	if !running {
		return fmt.Errorf("event stream %s not started", channel)
	}
	data, err := platform.DefaultCodec.Encode(event)
	if err != nil {
		return err
	}
	return platform.HandleEvent(channel, data)
}

// fail delivers err to the listeners of channel as a stream error. It
// returns err itself when the stream is not running.
func (b *Bridge) fail(channel string, err error) error {
	b.mu.Lock()
	running := b.streams[channel]
	b.mu.Unlock()
	if !running {
		return err
	}
	b.logger.Warn("event stream error", "channel", channel, "err", err)
	return platform.HandleEventError(channel, platform.CodeIOError, err.Error())
}

func (b *Bridge) device(method string, args map[string]any) (any, error) {
	switch method {
	case "sdkInt":
		return map[string]any{"sdkInt": b.profile.SDK}, nil
	case "externalStorageState":
		return map[string]any{"state": b.profile.ExternalStorage}, nil
	case "getAppDirectory":
		var path string
		switch platform.AppDirectory(stringArg(args, "directory")) {
		case platform.AppDirectoryFiles:
			path = b.layout.FilesDir()
		case platform.AppDirectoryExternalFiles:
			path = b.layout.ExternalFilesDir()
		case platform.AppDirectoryExternalStorage:
			path = b.layout.ExternalStorageDir()
		default:
			return nil, platform.ErrInvalidArguments
		}
		return map[string]any{"path": path}, nil
	}
	return nil, platform.ErrMethodNotFound
}

func (b *Bridge) permissions(method string, args map[string]any) (any, error) {
	name := stringArg(args, "permission")
	switch method {
	case "check":
		return map[string]any{"status": string(b.PermissionStatus(name))}, nil

	case "shouldShowRationale":
		b.mu.Lock()
		show := b.rationale[name]
		b.mu.Unlock()
		return map[string]any{"shouldShow": show}, nil

	case "request":
		status := b.PermissionStatus(name)
		if status == platform.PermissionResultUnknown {
			return nil, platform.ErrInvalidArguments
		}
		if status != platform.PermissionGranted && status != platform.PermissionPermanentlyDenied {
			answer, err := b.prompter.AskPermission(name)
			if err != nil {
				return nil, b.fail("drift/permissions/changes", err)
			}
			status = answer
			b.mu.Lock()
			b.status[name] = status
			// A plain denial asks the app to explain itself next time; a
			// permanent one stops the dialog from showing at all.
			b.rationale[name] = status == platform.PermissionDenied
			b.mu.Unlock()
			b.logger.Info("permission answered", "permission", name, "status", string(status))
		}
		return nil, b.emit("drift/permissions/changes", map[string]any{
			"permission": name,
			"status":     string(status),
		})

	}
	return nil, platform.ErrMethodNotFound
}

func (b *Bridge) storage(method string, args map[string]any) (any, error) {
	switch method {
	case "openDocument", "createDocument":
		event, err := b.pick(method, args)
		if err != nil {
			return nil, b.fail("drift/storage/result", err)
		}
		return nil, b.emit("drift/storage/result", event)

	case "readFile":
		path, err := b.documentPath(stringArg(args, "uri"))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fileError(err)
		}
		return map[string]any{"data": data}, nil

	case "writeFile":
		path, err := b.documentPath(stringArg(args, "uri"))
		if err != nil {
			return nil, err
		}
		data, err := bytesArg(args, "data")
		if err != nil {
			return nil, err
		}
		if err := b.checkWritable(); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fileError(err)
		}
		return nil, nil
	}
	return nil, platform.ErrMethodNotFound
}

// pick runs the document picker and builds its result event.
func (b *Bridge) pick(method string, args map[string]any) (map[string]any, error) {
	event := map[string]any{
		"requestId": stringArg(args, "requestId"),
		"type":      method,
	}
	if b.profile.NoPicker {
		event["error"] = platform.CodeNoHandler
		return event, nil
	}

	req := DocumentRequest{
		Create:   method == "createDocument",
		Title:    stringArg(args, "title"),
		MimeType: stringArg(args, "mimeType"),
	}
	rel, err := b.prompter.PickDocument(req)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		event["cancelled"] = true
		return event, nil
	}
	path, err := b.layout.sharedPath(rel)
	if err != nil {
		event["error"] = err.Error()
		return event, nil
	}

	if req.Create {
		if err := b.checkWritable(); err != nil {
			event["error"] = err.Error()
			return event, nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			event["error"] = err.Error()
			return event, nil
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			event["error"] = err.Error()
			return event, nil
		}
		f.Close()
	}

	event["uri"] = DocumentURIPrefix + filepath.ToSlash(rel)
	event["name"] = filepath.Base(path)
	event["mimeType"] = req.MimeType
	if info, err := os.Stat(path); err == nil {
		event["size"] = info.Size()
	}
	return event, nil
}

func (b *Bridge) documentPath(uri string) (string, error) {
	rel, ok := strings.CutPrefix(uri, DocumentURIPrefix)
	if !ok {
		return "", platform.NewChannelError(platform.CodeNotFound, "unknown document "+uri)
	}
	path, err := b.layout.sharedPath(rel)
	if err != nil {
		return "", platform.NewChannelError(platform.CodeDenied, err.Error())
	}
	return path, nil
}

func (b *Bridge) checkWritable() error {
	if b.profile.ExternalStorage != platform.MediaMounted {
		return platform.NewChannelError(platform.CodeIOError, "external storage is "+b.profile.ExternalStorage)
	}
	return nil
}

func (b *Bridge) mediaStore(method string, args map[string]any) (any, error) {
	ctx := context.Background()
	switch method {
	case "query":
		rows, err := b.media.Query(ctx, stringArg(args, "mimeType"))
		if err != nil {
			return nil, platform.NewChannelError(platform.CodeIOError, err.Error())
		}
		out := make([]any, 0, len(rows))
		for _, r := range rows {
			out = append(out, map[string]any{
				"id":          r.ID,
				"uri":         r.URI(),
				"displayName": r.DisplayName,
				"mimeType":    r.MimeType,
			})
		}
		return map[string]any{"rows": out}, nil

	case "insert":
		if err := b.checkWritable(); err != nil {
			return nil, err
		}
		pending, _ := args["isPending"].(bool)
		r, err := b.media.Insert(ctx, stringArg(args, "displayName"), stringArg(args, "mimeType"), pending)
		if err != nil {
			return nil, platform.NewChannelError(platform.CodeIOError, err.Error())
		}
		return map[string]any{"uri": r.URI()}, nil

	case "write":
		id, err := ParseMediaURI(stringArg(args, "uri"))
		if err != nil {
			return nil, platform.NewChannelError(platform.CodeNotFound, err.Error())
		}
		data, err := bytesArg(args, "data")
		if err != nil {
			return nil, err
		}
		if err := b.media.Write(ctx, id, data); err != nil {
			return nil, mediaError(err)
		}
		return nil, nil

	case "update":
		id, err := ParseMediaURI(stringArg(args, "uri"))
		if err != nil {
			return nil, platform.NewChannelError(platform.CodeNotFound, err.Error())
		}
		pending, _ := args["isPending"].(bool)
		if err := b.media.SetPending(ctx, id, pending); err != nil {
			return nil, mediaError(err)
		}
		return nil, nil
	}
	return nil, platform.ErrMethodNotFound
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// bytesArg decodes a byte slice sent through the JSON codec.
func bytesArg(args map[string]any, key string) ([]byte, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		data, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, platform.ErrInvalidArguments
		}
		return data, nil
	}
	return nil, platform.ErrInvalidArguments
}

func fileError(err error) error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return platform.NewChannelError(platform.CodeNotFound, err.Error())
	}
	return platform.NewChannelError(platform.CodeIOError, err.Error())
}

func mediaError(err error) error {
	if stderrors.Is(err, ErrMediaNotFound) {
		return platform.NewChannelError(platform.CodeNotFound, err.Error())
	}
	return fileError(err)
}
