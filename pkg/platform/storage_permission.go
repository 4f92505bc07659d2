package platform

// Storage permission names on the platform channel.
const (
	PermissionNameReadStorage  = "read_external_storage"
	PermissionNameWriteStorage = "write_external_storage"
)

// StoragePermissionService provides the external storage permissions.
type StoragePermissionService struct {
	// Read guards reading shared external storage.
	Read Permission
	// Write guards writing shared external storage.
	Write Permission
}

// StoragePermission is the singleton storage permission service.
var StoragePermission = &StoragePermissionService{
	Read:  newPermission(PermissionNameReadStorage),
	Write: newPermission(PermissionNameWriteStorage),
}

// Lookup returns the permission with the given platform name, or nil.
func (s *StoragePermissionService) Lookup(name string) Permission {
	switch name {
	case PermissionNameReadStorage:
		return s.Read
	case PermissionNameWriteStorage:
		return s.Write
	}
	return nil
}
