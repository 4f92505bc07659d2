package filelab

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxImageEdge bounds the longer side of an image written to the media index.
const maxImageEdge = 1024

// EncodePNG decodes an image (PNG, JPEG, BMP or WebP) and re-encodes it as
// a lossless PNG. Images larger than maxImageEdge are scaled down
// preserving the aspect ratio.
func EncodePNG(r io.Reader) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	dst := image.NewNRGBA(fitWithin(bounds.Dx(), bounds.Dy(), maxImageEdge))
	if dst.Bounds().Size() == bounds.Size() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fitWithin(w, h, edge int) image.Rectangle {
	if w <= edge && h <= edge {
		return image.Rect(0, 0, w, h)
	}
	if w >= h {
		return image.Rect(0, 0, edge, max(1, h*edge/w))
	}
	return image.Rect(0, 0, max(1, w*edge/h), edge)
}
