package filelab

import "time"

// timestampLayout renders ddMMyy_HHmmss.
const timestampLayout = "020106_150405"

// MediaName returns the display name of an image saved at t,
// e.g. andy_150226_094512.png.
func MediaName(t time.Time) string {
	return "andy_" + t.Format(timestampLayout) + ".png"
}

// DocumentTitle returns the suggested name of a text document created
// through the picker at t.
func DocumentTitle(t time.Time) string {
	return "public_other_storage_" + t.Format(timestampLayout) + ".txt"
}
