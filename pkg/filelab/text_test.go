package filelab

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"a\nb", "ab"},
		{"a\r\nb", "ab"},
		{"a\rb", "ab"},
		{"\n\n", ""},
		{"trailing\n", "trailing"},
		{"a\xffb", "a\uFFFDb"},
		{"\xff\xfe", "\uFFFD\uFFFD"},
		{"x\xe2\x82", "x\uFFFD\uFFFD"},
		{"caf\u00e9 \uFFFD", "caf\u00e9 \uFFFD"},
	}
	for _, tt := range tests {
		got, err := ReadText(strings.NewReader(tt.in))
		if err != nil {
			t.Fatalf("ReadText(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ReadText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteTextFileVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	content := "first\nsecond\r\n"
	if err := writeTextFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("file = %q, want %q", data, content)
	}

	// Rewriting truncates.
	if err := writeTextFile(path, "x", 0o644); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(path); string(data) != "x" {
		t.Errorf("file = %q after rewrite", data)
	}
}

func TestWriteTextFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out")
	if err := writeTextFile(path, "x", 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestNaming(t *testing.T) {
	ts := time.Date(2025, 12, 31, 23, 5, 9, 0, time.UTC)
	if got := MediaName(ts); got != "andy_311225_230509.png" {
		t.Errorf("MediaName = %q", got)
	}
	if got := DocumentTitle(ts); got != "public_other_storage_311225_230509.txt" {
		t.Errorf("DocumentTitle = %q", got)
	}
}

func TestEncodePNG(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"small", 48, 48, 48, 48},
		{"wide", 2048, 512, 1024, 256},
		{"tall", 300, 3000, 102, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			src.Set(0, 0, color.RGBA{R: 255, A: 255})
			var in bytes.Buffer
			if err := png.Encode(&in, src); err != nil {
				t.Fatal(err)
			}

			out, err := EncodePNG(&in)
			if err != nil {
				t.Fatalf("EncodePNG: %v", err)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestEncodePNGRejectsText(t *testing.T) {
	if _, err := EncodePNG(strings.NewReader("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestBundledResources(t *testing.T) {
	res := BundledResources()
	for _, name := range []string{ResourceTextFile, ResourceImage} {
		f, err := res.Open(name)
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		f.Close()
	}
}
