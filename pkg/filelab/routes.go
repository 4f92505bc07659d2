package filelab

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/go-drift/filelab/pkg/errors"
	"github.com/go-drift/filelab/pkg/gate"
	"github.com/go-drift/filelab/pkg/platform"
)

// Default file names of each target.
const (
	InternalFileName        = "internal_storage_file"
	PrivateExternalFileName = "external_storage_file"
	PublicOtherFileName     = "external_public_storage_file"
	DownloadDir             = "Download"
)

// internalFileMode keeps the internal file private to the app.
const internalFileMode = 0o600

func (l *Lab) read(ctx context.Context, d gate.Decision) error {
	switch d.Target() {
	case gate.Resources:
		f, err := l.resources.Open(ResourceTextFile)
		if err != nil {
			return err
		}
		defer f.Close()
		text, err := ReadText(f)
		if err != nil {
			return err
		}
		l.SetContent(text)
		return nil

	case gate.PublicMediaStorage:
		l.SetContent("")
		return l.RefreshGrid(ctx)

	case gate.PublicOtherStorage:
		if d.Route == gate.RouteDocumentPicker {
			return l.readPicked(ctx)
		}
	}

	path, err := l.defaultPath(d.Target())
	if err != nil {
		return err
	}
	text, err := readTextFile(path)
	if err != nil {
		return err
	}
	l.SetContent(text)
	return nil
}

func (l *Lab) write(ctx context.Context, d gate.Decision, c gate.Capability) error {
	switch d.Target() {
	case gate.PublicMediaStorage:
		return l.writeImage(ctx, c)

	case gate.PublicOtherStorage:
		if d.Route == gate.RouteDocumentPicker {
			return l.writePicked(ctx)
		}
	}

	path, err := l.defaultPath(d.Target())
	if err != nil {
		return err
	}
	perm := fs.FileMode(0o644)
	if d.Target() == gate.InternalStorage {
		perm = internalFileMode
	}
	return writeTextFile(path, l.Content(), perm)
}

// defaultPath returns the file a direct route reads and writes.
func (l *Lab) defaultPath(target gate.Target) (string, error) {
	var (
		dir  platform.AppDirectory
		name string
	)
	switch target {
	case gate.InternalStorage:
		dir, name = platform.AppDirectoryFiles, InternalFileName
	case gate.PrivateExternalStorage:
		dir, name = platform.AppDirectoryExternalFiles, PrivateExternalFileName
	case gate.PublicOtherStorage:
		dir, name = platform.AppDirectoryExternalStorage, filepath.Join(DownloadDir, PublicOtherFileName)
	default:
		return "", fmt.Errorf("no file path for %s", target)
	}
	root, err := l.device.Directory(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func (l *Lab) readPicked(ctx context.Context) error {
	l.SetContent("")
	result, err := l.picker.OpenDocument(ctx, platform.OpenDocumentOptions{MimeType: platform.MimeTypeText})
	if err != nil {
		return err
	}
	if result.Cancelled || result.URI == "" {
		l.logger.Info("document picker cancelled", "type", "openDocument")
		return nil
	}
	data, err := l.picker.ReadFile(result.URI)
	if err != nil {
		return err
	}
	text, err := ReadText(bytes.NewReader(data))
	if err != nil {
		return err
	}
	l.SetContent(text)
	return nil
}

func (l *Lab) writePicked(ctx context.Context) error {
	result, err := l.picker.CreateDocument(ctx, platform.CreateDocumentOptions{
		Title:    DocumentTitle(l.now()),
		MimeType: platform.MimeTypeText,
	})
	if err != nil {
		return err
	}
	if result.Cancelled || result.URI == "" {
		l.logger.Info("document picker cancelled", "type", "createDocument")
		return nil
	}
	return l.picker.WriteFile(result.URI, []byte(l.Content()))
}

// writeImage stores the bundled image in the media index. On SDK 29+ the
// entry stays pending until its content is written.
func (l *Lab) writeImage(ctx context.Context, c gate.Capability) error {
	f, err := l.resources.Open(ResourceImage)
	if err != nil {
		return err
	}
	data, err := EncodePNG(f)
	f.Close()
	if err != nil {
		return err
	}

	pending := c.SDK >= gate.SDKQ
	uri, err := l.media.Insert(ctx, platform.MediaValues{
		DisplayName: MediaName(l.now()),
		MimeType:    platform.MimeTypePNG,
		Pending:     pending,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrIO, err)
	}
	if err := l.media.Write(ctx, uri, data); err != nil {
		return err
	}
	if pending {
		if err := l.media.SetPending(ctx, uri, false); err != nil {
			return err
		}
	}
	l.logger.Debug("image stored", "uri", uri, "bytes", len(data))
	return l.RefreshGrid(ctx)
}
