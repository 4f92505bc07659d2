package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenReadInternal(t *testing.T) {
	root := t.TempDir()

	out, err := runCLI(t, root, "", "--sdk", "30", "write", "internal", "hello", "world")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "Saved 11 bytes to internal.") {
		t.Errorf("write output = %q", out)
	}

	out, err = runCLI(t, root, "", "--sdk", "30", "read", "internal")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(out) != "hello world" {
		t.Errorf("read output = %q, want hello world", out)
	}
}

func TestWriteReadsTextFromStdin(t *testing.T) {
	root := t.TempDir()

	if _, err := runCLI(t, root, "typed line\n", "--sdk", "30", "write", "private-external"); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := runCLI(t, root, "", "--sdk", "30", "read", "private-external")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "typed line") {
		t.Errorf("read output = %q", out)
	}
}

func TestWriteKeepsStdinTextVerbatim(t *testing.T) {
	root := t.TempDir()

	if _, err := runCLI(t, root, "  two  spaces \n", "--sdk", "30", "write", "internal"); err != nil {
		t.Fatalf("write: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(root, "data", "data", "*", "files", "internal_storage_file"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("internal file not found: %v %v", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "  two  spaces " {
		t.Errorf("file = %q, want the line without its terminator", data)
	}
}

func TestWriteResourcesRefused(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "--sdk", "30", "write", "resources", "x")
	if err == nil {
		t.Fatal("writing resources should fail")
	}
	if !strings.Contains(out, "Resources cannot be overwritten") {
		t.Errorf("missing notice in output:\n%s", out)
	}
}

func TestReadResources(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "read", "resources")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "bundled with the app") {
		t.Errorf("read output = %q", out)
	}
}

func TestReadUnknownTarget(t *testing.T) {
	if _, err := runCLI(t, t.TempDir(), "", "read", "sdcard"); err == nil {
		t.Fatal("unknown target should fail")
	}
}

func TestPublicMediaWithPermissionPrompt(t *testing.T) {
	root := t.TempDir()

	out, err := runCLI(t, root, "y\n", "--sdk", "26", "write", "public-media")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "Allow access to write_external_storage?") {
		t.Errorf("no permission prompt in output:\n%s", out)
	}
	if !strings.Contains(out, ".png") {
		t.Errorf("grid not printed after save:\n%s", out)
	}

	out, err = runCLI(t, root, "", "--sdk", "30", "grid")
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if strings.Count(out, "content://media/external/images/media/") != 1 {
		t.Errorf("grid output = %q, want one entry", out)
	}
}

func TestPublicMediaPermissionDenied(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "n\n", "--sdk", "26", "write", "public-media")
	if err == nil {
		t.Fatal("denied write should fail")
	}
	if !strings.Contains(out, "Permission denied") {
		t.Errorf("missing denial notice:\n%s", out)
	}
}

func TestPublicOtherThroughPicker(t *testing.T) {
	root := t.TempDir()

	if _, err := runCLI(t, root, "Download/notes.txt\n", "--sdk", "30", "write", "public-other", "shared", "text"); err != nil {
		t.Fatalf("write: %v", err)
	}
	path := filepath.Join(root, "storage", "emulated", "0", "Download", "notes.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "shared text" {
		t.Errorf("document = %q", data)
	}

	out, err := runCLI(t, root, "Download/notes.txt\n", "--sdk", "30", "read", "public-other")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "shared text") {
		t.Errorf("read output = %q", out)
	}
}

func TestPolicyTable(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "--sdk", "30", "policy")
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	for _, want := range []string{
		"API 30",
		"resources          write  blocked(read_only)",
		"public-media       write  proceed(media-index)",
		"public-other       read   proceed(document-picker)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("policy output missing %q:\n%s", want, out)
		}
	}
}

func TestPermissionsInstallTime(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "--sdk", "22", "permissions")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if strings.Count(out, "granted") != 2 {
		t.Errorf("expected both permissions granted below API 23:\n%s", out)
	}
}

func TestPermissionsRequest(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "n\n", "--sdk", "30", "permissions", "request", "read")
	if err != nil {
		t.Fatalf("permissions request: %v", err)
	}
	for _, want := range []string{
		"changed read_external_storage is now denied",
		"read_external_storage    denied (rationale)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, t.TempDir(), "", "permissions", "request", "camera"); err == nil {
		t.Error("unknown permission should fail")
	}
}
