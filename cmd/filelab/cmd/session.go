package cmd

import (
	"fmt"
	"log/slog"

	"github.com/go-drift/filelab/cmd/filelab/internal/config"
	"github.com/go-drift/filelab/internal/emulator"
	"github.com/go-drift/filelab/pkg/errors"
	"github.com/go-drift/filelab/pkg/filelab"
	"github.com/go-drift/filelab/pkg/platform"
)

// session is one CLI invocation wired to an emulated device.
type session struct {
	cfg    *config.Resolved
	logger *slog.Logger
	term   *terminal
	device *emulator.Bridge
	lab    *filelab.Lab
}

// openSession resolves the configuration, starts the emulated device and
// installs it as the native bridge.
func openSession(opts *Options) (*session, error) {
	root, err := config.FindProjectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root, opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.DeviceRoot != "" {
		cfg.Device.Root = opts.DeviceRoot
	}
	if opts.SDK != 0 {
		cfg.Device.SDK = opts.SDK
	}

	level := parseLevel(cfg.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(opts.Stderr, level)
	slog.SetDefault(logger)
	errors.SetHandler(&errors.LogHandler{Logger: logger, Verbose: opts.Verbose})

	term := newTerminal(opts.Stdin, opts.Stdout)
	device, err := emulator.New(cfg.Device.Root, profileOf(cfg), term)
	if err != nil {
		return nil, fmt.Errorf("failed to start device: %w", err)
	}
	platform.SetNativeBridge(device)

	logger.Debug("device ready", "app", cfg.AppID, "sdk", cfg.Device.SDK,
		"storage", cfg.Device.ExternalStorage, "root", cfg.Device.Root)

	return &session{
		cfg:    cfg,
		logger: logger,
		term:   term,
		device: device,
		lab:    filelab.New(filelab.Config{Notifier: term, Logger: logger}),
	}, nil
}

func profileOf(cfg *config.Resolved) emulator.Profile {
	p := emulator.Profile{
		AppID:           cfg.AppID,
		SDK:             cfg.Device.SDK,
		ExternalStorage: cfg.Device.ExternalStorage,
		Rationale:       cfg.Device.Rationale,
		NoPicker:        cfg.Device.NoPicker,
	}
	if len(cfg.Device.Permissions) > 0 {
		p.Permissions = make(map[string]platform.PermissionResult, len(cfg.Device.Permissions))
		for name, status := range cfg.Device.Permissions {
			p.Permissions[name] = platform.PermissionResult(status)
		}
	}
	return p
}

func (s *session) Close() error {
	platform.SetNativeBridge(nil)
	return s.device.Close()
}
