package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/go-drift/filelab/internal/emulator"
	"github.com/go-drift/filelab/pkg/filelab"
	"github.com/go-drift/filelab/pkg/gate"
	"github.com/go-drift/filelab/pkg/platform"
)

// terminal plays the user of the emulated device: it answers permission
// dialogs and the document picker from input lines and prints notices.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

// readText reads one line and strips only its terminator.
func (t *terminal) readText() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readLine reads one answer with surrounding blanks removed.
func (t *terminal) readLine() (string, error) {
	line, err := t.readText()
	return strings.TrimSpace(line), err
}

// AskPermission implements emulator.Prompter. "y" grants, "never" denies
// permanently and anything else denies. End of input denies.
func (t *terminal) AskPermission(name string) (platform.PermissionResult, error) {
	fmt.Fprintf(t.out, "%s Allow access to %s? [y/N/never] ",
		color.New(color.FgCyan, color.Bold).Sprint("permission"), name)
	answer, err := t.readLine()
	if err == io.EOF {
		fmt.Fprintln(t.out)
		return platform.PermissionDenied, nil
	}
	if err != nil {
		return platform.PermissionResultUnknown, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return platform.PermissionGranted, nil
	case "never":
		return platform.PermissionPermanentlyDenied, nil
	default:
		return platform.PermissionDenied, nil
	}
}

// PickDocument implements emulator.Prompter. An empty line cancels.
func (t *terminal) PickDocument(req emulator.DocumentRequest) (string, error) {
	label := "open"
	hint := ""
	if req.Create {
		label = "create"
		hint = fmt.Sprintf(" [Download/%s]", req.Title)
	}
	fmt.Fprintf(t.out, "%s Path in shared storage%s (empty cancels): ",
		color.New(color.FgCyan, color.Bold).Sprint("picker:"+label), hint)
	path, err := t.readLine()
	if err == io.EOF {
		fmt.Fprintln(t.out)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if path == "." && req.Create {
		path = "Download/" + req.Title
	}
	return path, nil
}

// Notify implements filelab.Notifier.
func (t *terminal) Notify(n filelab.Notice) {
	fmt.Fprintf(t.out, "%s %s\n", color.YellowString("!"), n.Message)
}

// ShowRationale implements filelab.Notifier. The dialog has a single
// button; any input line acknowledges it.
func (t *terminal) ShowRationale(ctx context.Context, permission gate.PermissionKind) error {
	fmt.Fprintf(t.out, "%s\n%s\n[press enter to continue] ",
		color.New(color.Bold).Sprint(filelab.RationaleTitle), filelab.RationaleMessage)
	if _, err := t.readLine(); err != nil && err != io.EOF {
		return err
	}
	return ctx.Err()
}
