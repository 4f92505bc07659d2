package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/go-drift/filelab/pkg/filelab"
	"github.com/go-drift/filelab/pkg/gate"
)

func init() {
	RegisterCommand(&Command{
		Name:  "read",
		Short: "Read the default file of a storage target",
		Long: `Select a storage target and print what it loads.

Targets: resources, internal, private-external, public-media, public-other.

For public-media the image grid is printed instead of text. For
public-other on API 19 and later the document picker asks for a path.`,
		Usage: "filelab [flags] read <target>",
		Run:   runRead,
	})
	RegisterCommand(&Command{
		Name:  "grid",
		Short: "List the images in public media storage",
		Long:  `List the PNG images in the shared media index, ordered by name.`,
		Usage: "filelab [flags] grid",
		Run:   runGrid,
	})
}

func runRead(opts *Options, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one target is required\n\nUsage: filelab read <target>")
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

	if err := s.lab.Select(context.Background(), target); err != nil {
		return err
	}
	if target == gate.PublicMediaStorage {
		printGrid(opts.Stdout, s.lab.Grid())
		return nil
	}
	fmt.Fprintln(opts.Stdout, s.lab.Content())
	return nil
}

func runGrid(opts *Options, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("grid takes no arguments\n\nUsage: filelab grid")
	}
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.lab.Select(context.Background(), gate.PublicMediaStorage); err != nil {
		return err
	}
	printGrid(opts.Stdout, s.lab.Grid())
	return nil
}

func printGrid(w io.Writer, grid []filelab.GridEntry) {
	if len(grid) == 0 {
		fmt.Fprintln(w, "No images.")
		return
	}
	for _, e := range grid {
		fmt.Fprintf(w, "  %-28s %s\n", e.Name, e.URI)
	}
}
