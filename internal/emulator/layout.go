// Package emulator runs the platform side of the storage lab on the local
// filesystem. A Bridge answers the platform channels the way an Android
// device with a given Profile would: app directories live under a root
// directory, shared images are indexed in SQLite, and permission dialogs
// and the document picker are delegated to a Prompter.
package emulator

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout maps the device directories of one app onto a host directory.
type Layout struct {
	Root  string
	AppID string
}

// FilesDir is the app's internal files directory.
func (l Layout) FilesDir() string {
	return filepath.Join(l.Root, "data", "data", l.AppID, "files")
}

// ExternalStorageDir is the root of shared external storage.
func (l Layout) ExternalStorageDir() string {
	return filepath.Join(l.Root, "storage", "emulated", "0")
}

// ExternalFilesDir is the app's private directory on external storage.
func (l Layout) ExternalFilesDir() string {
	return filepath.Join(l.ExternalStorageDir(), "Android", "data", l.AppID, "files")
}

// PicturesDir holds the files behind the image index.
func (l Layout) PicturesDir() string {
	return filepath.Join(l.ExternalStorageDir(), "Pictures")
}

// DownloadDir is the shared downloads directory.
func (l Layout) DownloadDir() string {
	return filepath.Join(l.ExternalStorageDir(), "Download")
}

// MediaDB is the path of the image index database.
func (l Layout) MediaDB() string {
	return filepath.Join(l.Root, "media.db")
}

// Prepare creates every directory of the layout.
func (l Layout) Prepare() error {
	if l.Root == "" || l.AppID == "" {
		return fmt.Errorf("emulator layout needs a root and an app ID")
	}
	for _, dir := range []string{l.FilesDir(), l.ExternalFilesDir(), l.PicturesDir(), l.DownloadDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// sharedPath resolves a path relative to shared external storage,
// rejecting paths that escape it.
func (l Layout) sharedPath(rel string) (string, error) {
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q is outside shared storage", rel)
	}
	return filepath.Join(l.ExternalStorageDir(), rel), nil
}
