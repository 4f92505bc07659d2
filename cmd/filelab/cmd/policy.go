package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/go-drift/filelab/pkg/gate"
)

func init() {
	RegisterCommand(&Command{
		Name:  "policy",
		Short: "Show the storage decision table",
		Long: `Show what the storage gate decides for every target and operation on
the configured device: proceed (and by which route), request a
permission, or block.

Permission statuses are read from the device but nothing is requested.`,
		Usage: "filelab [flags] policy",
		Run:   runPolicy,
	})
}

func runPolicy(opts *Options, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("policy takes no arguments\n\nUsage: filelab policy")
	}
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	sdk := s.cfg.Device.SDK
	fmt.Fprintf(opts.Stdout, "Device: API %d (%s), external storage %s\n\n",
		sdk, gate.TierOf(sdk), s.cfg.Device.ExternalStorage)

	for _, target := range gate.Targets {
		for _, op := range []gate.Operation{gate.Read, gate.Write} {
			d, err := s.lab.Decide(ctx, target, op)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.Stdout, "  %-18s %-6s %s\n", target, op, colorDecision(d))
		}
	}
	return nil
}

func colorDecision(d gate.Decision) string {
	switch d.Outcome {
	case gate.Proceed:
		return color.GreenString(d.String())
	case gate.RequestPermission:
		return color.YellowString(d.String())
	default:
		return color.RedString(d.String())
	}
}
