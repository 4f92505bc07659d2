package emulator

import (
	"fmt"

	"github.com/go-drift/filelab/pkg/platform"
)

// sdkRuntimePermissions is the first API level that asks for dangerous
// permissions at run time. Older devices grant them at install.
const sdkRuntimePermissions = 23

// Profile describes the emulated device.
type Profile struct {
	AppID string
	SDK   int
	// ExternalStorage is the mount state, one of the platform.Media* values.
	ExternalStorage string
	// Permissions holds the initial status of each storage permission.
	// Missing entries are granted below API 23 and not determined otherwise.
	Permissions map[string]platform.PermissionResult
	// Rationale holds the initial rationale flag of each permission.
	Rationale map[string]bool
	// NoPicker emulates a device without a document provider app.
	NoPicker bool
}

// Validate checks the profile for values no device reports.
func (p Profile) Validate() error {
	if p.AppID == "" {
		return fmt.Errorf("profile: app ID is required")
	}
	if p.SDK < 1 {
		return fmt.Errorf("profile: invalid SDK level %d", p.SDK)
	}
	switch p.ExternalStorage {
	case platform.MediaMounted, platform.MediaMountedReadOnly, platform.MediaUnmounted,
		platform.MediaRemoved, platform.MediaShared:
	default:
		return fmt.Errorf("profile: unknown external storage state %q", p.ExternalStorage)
	}
	return nil
}

func (p Profile) initialStatus(name string) platform.PermissionResult {
	if s, ok := p.Permissions[name]; ok {
		return s
	}
	if p.SDK < sdkRuntimePermissions {
		return platform.PermissionGranted
	}
	return platform.PermissionNotDetermined
}

// DocumentRequest is a document picker invocation.
type DocumentRequest struct {
	// Create is true for a new document, false to open an existing one.
	Create   bool
	Title    string
	MimeType string
}

// Prompter stands in for the dialogs a user answers on the device.
type Prompter interface {
	// AskPermission shows the system permission dialog for name.
	AskPermission(name string) (platform.PermissionResult, error)
	// PickDocument shows the document picker and returns a path relative
	// to shared storage. An empty path means the user cancelled.
	PickDocument(req DocumentRequest) (string, error)
}

// ScriptedPrompter answers every dialog from fixed values.
type ScriptedPrompter struct {
	// Answers maps permission names to the user's choice. Missing entries deny.
	Answers map[string]platform.PermissionResult
	// Document is the picked path; empty cancels.
	Document string
	// Err, when set, fails every dialog.
	Err error

	Asked  []string
	Picked []DocumentRequest
}

func (s *ScriptedPrompter) AskPermission(name string) (platform.PermissionResult, error) {
	s.Asked = append(s.Asked, name)
	if s.Err != nil {
		return platform.PermissionResultUnknown, s.Err
	}
	if r, ok := s.Answers[name]; ok {
		return r, nil
	}
	return platform.PermissionDenied, nil
}

func (s *ScriptedPrompter) PickDocument(req DocumentRequest) (string, error) {
	s.Picked = append(s.Picked, req)
	return s.Document, s.Err
}
