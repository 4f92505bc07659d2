package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-drift/filelab/pkg/gate"
)

func init() {
	RegisterCommand(&Command{
		Name:  "write",
		Short: "Save text (or an image) to a storage target",
		Long: `Select a storage target and save to it.

The text is taken from the remaining arguments, or read as one line from
standard input when none are given. public-media ignores the text and
stores the bundled image under a timestamped name. resources is
read-only and always refuses.`,
		Usage: "filelab [flags] write <target> [text...]",
		Run:   runWrite,
	})
}

func runWrite(opts *Options, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("target is required\n\nUsage: filelab write <target> [text...]")
	}
	target, err := gate.ParseTarget(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	content := strings.Join(args[1:], " ")
	if len(args) == 1 && target != gate.PublicMediaStorage && target != gate.Resources {
		fmt.Fprint(opts.Stdout, "Text: ")
		content, err = s.term.readText()
		if err != nil && err != io.EOF {
			return err
		}
	}

	s.lab.SetTarget(target)
	s.lab.SetContent(content)
	if err := s.lab.Save(context.Background()); err != nil {
		return err
	}

	if target == gate.PublicMediaStorage {
		printGrid(opts.Stdout, s.lab.Grid())
		return nil
	}
	fmt.Fprintf(opts.Stdout, "Saved %d bytes to %s.\n", len(content), target)
	return nil
}
