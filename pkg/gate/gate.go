// Package gate decides whether a storage operation may proceed.
//
// Evaluate maps a storage target, an operation and the current platform
// capability to one of three outcomes: proceed now, request a runtime
// permission first, or fail with a reason. It has no side effects; the
// caller performs the permission request or I/O and, when a permission
// callback arrives, resumes through Resume.
package gate

import (
	"fmt"
	"strings"
)

// Target identifies a storage location.
type Target int

const (
	// Resources is the read-only set of files bundled with the app.
	Resources Target = iota
	// InternalStorage is the app's private sandbox.
	InternalStorage
	// PrivateExternalStorage is the app-specific directory on external storage.
	PrivateExternalStorage
	// PublicMediaStorage is the shared image collection behind the media index.
	PublicMediaStorage
	// PublicOtherStorage is shared storage outside the media collections.
	PublicOtherStorage
)

// Targets lists every target in selection order.
var Targets = []Target{
	Resources,
	InternalStorage,
	PrivateExternalStorage,
	PublicMediaStorage,
	PublicOtherStorage,
}

var targetNames = [...]string{
	Resources:              "resources",
	InternalStorage:        "internal",
	PrivateExternalStorage: "private-external",
	PublicMediaStorage:     "public-media",
	PublicOtherStorage:     "public-other",
}

func (t Target) String() string {
	if t < 0 || int(t) >= len(targetNames) {
		return fmt.Sprintf("target(%d)", int(t))
	}
	return targetNames[t]
}

// External reports whether t lives on external storage.
func (t Target) External() bool {
	return t == PrivateExternalStorage || t == PublicMediaStorage || t == PublicOtherStorage
}

// ParseTarget converts a target name as printed by String.
func ParseTarget(s string) (Target, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range targetNames {
		if name == s {
			return Target(i), nil
		}
	}
	return 0, fmt.Errorf("unknown storage target %q", s)
}

// Operation is the direction of a storage access.
type Operation int

const (
	Read Operation = iota
	Write
)

func (o Operation) String() string {
	if o == Write {
		return "write"
	}
	return "read"
}

// PermissionKind names the runtime permission an operation needs.
// The values match the permission names used on the platform channel.
type PermissionKind string

const (
	PermissionReadExternal  PermissionKind = "read_external_storage"
	PermissionWriteExternal PermissionKind = "write_external_storage"
)

// PermissionFor returns the permission op needs on external storage.
func PermissionFor(op Operation) PermissionKind {
	if op == Write {
		return PermissionWriteExternal
	}
	return PermissionReadExternal
}

// PermissionState is the current grant state of a permission.
type PermissionState int

const (
	// DeniedCanAskAgain means not granted; request without explanation.
	DeniedCanAskAgain PermissionState = iota
	// DeniedShowRationale means not granted and the platform asks for an
	// explanation before the next request.
	DeniedShowRationale
	// Granted means the permission is held.
	Granted
)

func (s PermissionState) String() string {
	switch s {
	case Granted:
		return "granted"
	case DeniedShowRationale:
		return "denied-show-rationale"
	default:
		return "denied-can-ask-again"
	}
}

// MountState is the external storage mount state.
type MountState int

const (
	MountUnavailable MountState = iota
	MountReadOnly
	MountWritable
)

func (m MountState) String() string {
	switch m {
	case MountWritable:
		return "writable"
	case MountReadOnly:
		return "read-only"
	default:
		return "unavailable"
	}
}

// ParseMountState converts a platform external storage state
// ("mounted", "mounted_ro", ...) to a MountState. Anything else is
// unavailable.
func ParseMountState(state string) MountState {
	switch state {
	case "mounted":
		return MountWritable
	case "mounted_ro":
		return MountReadOnly
	default:
		return MountUnavailable
	}
}

// Allows reports whether the mount state supports op.
func (m MountState) Allows(op Operation) bool {
	if op == Write {
		return m == MountWritable
	}
	return m == MountWritable || m == MountReadOnly
}

// Tier is a coarse platform version bucket.
type Tier int

const (
	// TierLegacy is SDK < 19: no scoped app directories, no document picker.
	TierLegacy Tier = iota
	// TierScoped is SDK 19 to 28.
	TierScoped
	// TierIsolated is SDK 29 and later: scoped media storage.
	TierIsolated
)

// SDK levels at which storage behaviour changes.
const (
	SDKKitKat = 19
	SDKQ      = 29
)

// TierOf buckets an SDK level.
func TierOf(sdk int) Tier {
	switch {
	case sdk >= SDKQ:
		return TierIsolated
	case sdk >= SDKKitKat:
		return TierScoped
	default:
		return TierLegacy
	}
}

func (t Tier) String() string {
	switch t {
	case TierIsolated:
		return "29+"
	case TierScoped:
		return "19-28"
	default:
		return "pre-19"
	}
}

// Capability is the platform state an evaluation runs against.
type Capability struct {
	// SDK is the platform API level.
	SDK int
	// Media is the external storage mount state.
	Media MountState
	// Permission is the state of the permission the operation would need.
	Permission PermissionState
}

// Tier returns the version tier of c.SDK.
func (c Capability) Tier() Tier {
	return TierOf(c.SDK)
}
