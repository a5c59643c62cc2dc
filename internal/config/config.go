// Copyright (c) 2025 Wildlife.ai
// Licensed under the GPL-3.0 License. See LICENSE file in the project root for details.

// Package config loads and stores converter configuration in the XDG config dir.
// The accelerator target, compiler binary and fixed pipeline filenames live here
// as an explicit struct passed into the pipeline; nothing in this package is
// mutable process-wide state.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wildlifeai/wildlife-watcher-model-conversion/internal/xdg"
)

// Fixed filenames of the pipeline. These are contractual: the Edge Impulse
// export and the device firmware both depend on them.
const (
	// ModelFileName is the trained model the uploaded bundle must contain.
	ModelFileName = "trained.tflite"
	// VariablesHeaderPath is the generated header holding the label declaration,
	// relative to the bundle root.
	VariablesHeaderPath = "model-parameters/model_variables.h"
	// LabelsFileName is the labels file written into the output manifest.
	LabelsFileName = "labels.txt"
	// ManifestFileName is the download name of the output archive.
	ManifestFileName = "Manifest.zip"
)

// Defaults for the Vela invocation, matching the Ethos-U55 profile the
// Wildlife Watcher hardware ships with.
const (
	DefaultVelaBinary        = "vela"
	DefaultAcceleratorConfig = "ethos-u55-64"
	DefaultMemoryMode        = "Shared_Sram"
	DefaultCompileTimeoutSec = 120
	DefaultListenAddr        = ":8090"
	DefaultMaxUploadBytes    = 64 << 20 // 64 MB
)

// Config holds converter settings. WorkDir is where per-request workspaces
// are created; empty means the system temp directory.
type Config struct {
	VelaBinary        string `json:"vela_binary"`
	AcceleratorConfig string `json:"accelerator_config"`
	MemoryMode        string `json:"memory_mode"`
	CompileTimeoutSec int    `json:"compile_timeout_sec"`
	WorkDir           string `json:"work_dir"`
	ListenAddr        string `json:"listen_addr"`
	MaxUploadBytes    int64  `json:"max_upload_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		VelaBinary:        DefaultVelaBinary,
		AcceleratorConfig: DefaultAcceleratorConfig,
		MemoryMode:        DefaultMemoryMode,
		CompileTimeoutSec: DefaultCompileTimeoutSec,
		ListenAddr:        DefaultListenAddr,
		MaxUploadBytes:    DefaultMaxUploadBytes,
	}
}

// CompileTimeout returns the compiler timeout as a duration.
func (c Config) CompileTimeout() time.Duration {
	return time.Duration(c.CompileTimeoutSec) * time.Second
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	c := Default()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c.withDefaults(), nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// FromEnv overlays WWCONVERT_* environment variables onto c.
// Used by the serve command, where env is the conventional config source.
func FromEnv(c Config) Config {
	if v := os.Getenv("WWCONVERT_VELA_BINARY"); v != "" {
		c.VelaBinary = v
	}
	if v := os.Getenv("WWCONVERT_ACCELERATOR_CONFIG"); v != "" {
		c.AcceleratorConfig = v
	}
	if v := os.Getenv("WWCONVERT_MEMORY_MODE"); v != "" {
		c.MemoryMode = v
	}
	if v := os.Getenv("WWCONVERT_COMPILE_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CompileTimeoutSec = n
		}
	}
	if v := os.Getenv("WWCONVERT_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv("WWCONVERT_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("WWCONVERT_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxUploadBytes = n
		}
	}
	return c
}

// withDefaults fills zero-valued fields, so a partial config file still works.
func (c Config) withDefaults() Config {
	d := Default()
	if c.VelaBinary == "" {
		c.VelaBinary = d.VelaBinary
	}
	if c.AcceleratorConfig == "" {
		c.AcceleratorConfig = d.AcceleratorConfig
	}
	if c.MemoryMode == "" {
		c.MemoryMode = d.MemoryMode
	}
	if c.CompileTimeoutSec <= 0 {
		c.CompileTimeoutSec = d.CompileTimeoutSec
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	return c
}
