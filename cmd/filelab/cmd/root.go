// Package cmd implements the filelab CLI commands.
//
// The command structure follows standard Go CLI patterns with a root command
// that dispatches to subcommands (policy, read, write, grid, permissions).
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name        string
	Short       string
	Long        string
	Usage       string
	Run         func(opts *Options, args []string) error
	SubCommands []*Command
}

// Options are the global flags shared by every command.
type Options struct {
	// ConfigFile replaces filelab.yaml in the project root.
	ConfigFile string
	// DeviceRoot overrides the emulated device directory.
	DeviceRoot string
	// SDK overrides the emulated API level; zero keeps the configured one.
	SDK     int
	Verbose bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var rootCmd = &Command{
	Name:  "filelab",
	Short: "filelab - storage destinations and permission gating",
	Long: `filelab exercises the storage targets of an app on an emulated device:
bundled resources, internal storage, private external storage, public
media storage and the document picker, with the permission flow of the
configured API level.

Use "filelab <command> --help" for more information about a command.`,
	Usage: "filelab [flags] <command> [args]",
}

// Commands registered with the CLI.
var commands = make(map[string]*Command)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	rootCmd.SubCommands = append(rootCmd.SubCommands, cmd)
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return Run(os.Args[1:], &Options{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
}

// Run parses global flags from args and dispatches to a command.
func Run(args []string, opts *Options) error {
	if len(args) == 0 {
		printHelp(opts.Stdout, rootCmd)
		return nil
	}

	var filteredArgs []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "-h", "--help", "help":
			if len(filteredArgs) == 0 {
				printHelp(opts.Stdout, rootCmd)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "-v", "--version", "version":
			if len(filteredArgs) == 0 {
				fmt.Fprintf(opts.Stdout, "filelab version %s (built %s)\n", Version, BuildTime)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "--verbose":
			opts.Verbose = true
		case "--config", "--root", "--sdk":
			if !hasValue {
				if i+1 >= len(args) {
					return fmt.Errorf("%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			if err := opts.set(name, value); err != nil {
				return err
			}
		default:
			filteredArgs = append(filteredArgs, arg)
		}
	}
	args = filteredArgs

	if len(args) == 0 {
		printHelp(opts.Stdout, rootCmd)
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(opts.Stderr, "Error: unknown command %q\n\n", cmdName)
		printHelp(opts.Stderr, rootCmd)
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	cmdArgs := args[1:]
	for _, arg := range cmdArgs {
		if arg == "-h" || arg == "--help" || arg == "help" {
			printCommandHelp(opts.Stdout, cmd)
			return nil
		}
	}

	return cmd.Run(opts, cmdArgs)
}

func (o *Options) set(flag, value string) error {
	switch flag {
	case "--config":
		o.ConfigFile = value
	case "--root":
		o.DeviceRoot = value
	case "--sdk":
		sdk, err := strconv.Atoi(value)
		if err != nil || sdk < 1 {
			return fmt.Errorf("--sdk requires a positive API level (got %q)", value)
		}
		o.SDK = sdk
	}
	return nil
}

func printHelp(w io.Writer, cmd *Command) {
	fmt.Fprintln(w, cmd.Long)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s\n", cmd.Usage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, sub := range cmd.SubCommands {
		fmt.Fprintf(w, "  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -h, --help           Show help for a command")
	fmt.Fprintln(w, "  -v, --version        Show version information")
	fmt.Fprintln(w, "  --config FILE        Configuration file (default: ./filelab.yaml)")
	fmt.Fprintln(w, "  --root DIR           Emulated device directory (default: ./.filelab/device)")
	fmt.Fprintln(w, "  --sdk N              Emulated API level")
	fmt.Fprintln(w, "  --verbose            Debug logging with stack traces")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  FILELAB_ROOT, FILELAB_SDK, FILELAB_EXTERNAL_STORAGE,")
	fmt.Fprintln(w, "  FILELAB_NO_PICKER, FILELAB_LOG_LEVEL (lower priority than flags)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  filelab policy                        Decision table for the device")
	fmt.Fprintln(w, "  filelab --sdk 26 write public-media   Store an image, asking for permission")
	fmt.Fprintln(w, "  filelab read internal                 Print the internal file")
}

func printCommandHelp(w io.Writer, cmd *Command) {
	fmt.Fprintln(w, cmd.Long)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s\n", cmd.Usage)
}
