package filelab

import (
	"embed"
	"io/fs"
)

// Paths of the bundled raw resources.
const (
	ResourceTextFile = "raw/app_resource_file"
	ResourceImage    = "raw/andy.png"
)

//go:embed res
var bundled embed.FS

// BundledResources returns the read-only resources shipped with the lab.
func BundledResources() fs.FS {
	sub, err := fs.Sub(bundled, "res")
	if err != nil {
		panic(err)
	}
	return sub
}
