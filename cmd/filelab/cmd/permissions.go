package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/go-drift/filelab/pkg/platform"
)

func init() {
	RegisterCommand(&Command{
		Name:  "permissions",
		Short: "Show or request the storage permissions",
		Long: `Show the status of the external storage permissions on the device.

With "request read" or "request write" the permission dialog is shown
(unless the permission is granted or permanently denied).`,
		Usage: "filelab [flags] permissions [request read|write]",
		Run:   runPermissions,
	})
}

func runPermissions(opts *Options, args []string) error {
	var request string
	switch {
	case len(args) == 0:
	case len(args) == 2 && args[0] == "request":
		switch args[1] {
		case "read":
			request = platform.PermissionNameReadStorage
		case "write":
			request = platform.PermissionNameWriteStorage
		default:
			return fmt.Errorf("unknown permission %q (use read or write)", args[1])
		}
	default:
		return fmt.Errorf("usage: filelab permissions [request read|write]")
	}

	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if request != "" {
		p := platform.StoragePermission.Lookup(request)
		unsubscribe := p.Listen(func(status platform.PermissionStatus) {
			fmt.Fprintf(opts.Stdout, "%s %s is now %s\n", color.CyanString("changed"), p.Name(), colorStatus(status))
		})
		status, err := p.Request(ctx)
		unsubscribe()
		if err != nil {
			return err
		}
		s.logger.Info("permission requested", "permission", request, "status", string(status))
	}

	for _, p := range []platform.Permission{platform.StoragePermission.Read, platform.StoragePermission.Write} {
		status, err := p.Status(ctx)
		if err != nil {
			return err
		}
		rationale, err := p.ShouldShowRationale(ctx)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("  %-24s %s", p.Name(), colorStatus(status))
		if rationale {
			line += color.HiBlackString(" (rationale)")
		}
		fmt.Fprintln(opts.Stdout, line)
	}
	return nil
}

func colorStatus(s platform.PermissionStatus) string {
	switch s {
	case platform.PermissionGranted:
		return color.GreenString(string(s))
	case platform.PermissionDenied, platform.PermissionPermanentlyDenied:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}
