package platform

// External storage states reported by ExternalStorageState.
const (
	MediaMounted         = "mounted"
	MediaMountedReadOnly = "mounted_ro"
	MediaUnmounted       = "unmounted"
	MediaRemoved         = "removed"
	MediaShared          = "shared"
)

// AppDirectory represents standard app directories.
type AppDirectory string

const (
	// AppDirectoryFiles is the app's internal files directory.
	AppDirectoryFiles AppDirectory = "files"
	// AppDirectoryExternalFiles is the app-specific directory on external storage.
	AppDirectoryExternalFiles AppDirectory = "external_files"
	// AppDirectoryExternalStorage is the root of shared external storage.
	AppDirectoryExternalStorage AppDirectory = "external_storage"
)

// DeviceService reports the platform version and storage layout.
type DeviceService struct {
	channel *MethodChannel
}

// Device is the singleton device service.
var Device = &DeviceService{
	channel: NewMethodChannel("drift/device"),
}

// SDKInt returns the platform API level.
func (d *DeviceService) SDKInt() (int, error) {
	result, err := d.channel.Invoke("sdkInt", nil)
	if err != nil {
		return 0, err
	}
	if m := parseMap(result); m != nil {
		if n, ok := toInt64(m["sdkInt"]); ok {
			return int(n), nil
		}
	}
	return 0, ErrInvalidArguments
}

// ExternalStorageState returns the mount state of shared external storage,
// one of the Media* constants.
func (d *DeviceService) ExternalStorageState() (string, error) {
	result, err := d.channel.Invoke("externalStorageState", nil)
	if err != nil {
		return "", err
	}
	if m := parseMap(result); m != nil {
		return parseString(m["state"]), nil
	}
	return MediaUnmounted, nil
}

// Directory returns the path to a standard app directory.
func (d *DeviceService) Directory(dir AppDirectory) (string, error) {
	result, err := d.channel.Invoke("getAppDirectory", map[string]any{
		"directory": string(dir),
	})
	if err != nil {
		return "", err
	}
	if m := parseMap(result); m != nil {
		if path := parseString(m["path"]); path != "" {
			return path, nil
		}
	}
	return "", ErrPlatformUnavailable
}
