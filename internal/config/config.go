package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"go.uber.org/zap/zapcore"
)

const DefaultPath = "/etc/klipper-gcode-scanner/config.toml"

// Settings is the validated agent configuration. Extensions are already
// normalized.
type Settings struct {
	MountBase    string
	GcodeDir     string
	MirrorSubdir string
	Extensions   []string
	ScanInterval time.Duration
	StatePath    string
	LogLevel     zapcore.Level
	BlocklistDB  string
	RejectBinary bool
	Watch        bool
	MetricsAddr  string
}

// MirrorRoot is the directory holding one link subdirectory per device.
func (s Settings) MirrorRoot() string {
	return filepath.Join(s.GcodeDir, s.MirrorSubdir)
}

func Default() Settings {
	return Settings{
		MountBase:    "/media/usb",
		GcodeDir:     "/home/pi/printer_data/gcodes",
		MirrorSubdir: "usb",
		Extensions:   []string{".gcode"},
		ScanInterval: 5 * time.Second,
		StatePath:    "/var/lib/klipper-gcode-scanner/state.json",
		LogLevel:     zapcore.InfoLevel,
		Watch:        true,
	}
}

type fileConfig struct {
	MountBase    string   `toml:"mount_base"`
	GcodeDir     string   `toml:"gcode_dir"`
	MirrorSubdir string   `toml:"mirror_subdir"`
	Extensions   []string `toml:"extensions"`
	ScanInterval float64  `toml:"scan_interval"`
	StatePath    string   `toml:"state_path"`
	LogLevel     string   `toml:"log_level"`
	BlocklistDB  string   `toml:"blocklist_db"`
	RejectBinary bool     `toml:"reject_binary"`
	Watch        bool     `toml:"watch"`
	MetricsAddr  string   `toml:"metrics_addr"`
}

// Load reads the TOML file at path over the defaults. A missing file yields
// the defaults; keys absent from the file keep their default value.
func Load(path string) (Settings, error) {
	cfg := Default()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Settings{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Settings{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("mount_base") {
		cfg.MountBase = strings.TrimSpace(raw.MountBase)
	}
	if meta.IsDefined("gcode_dir") {
		cfg.GcodeDir = strings.TrimSpace(raw.GcodeDir)
	}
	if meta.IsDefined("mirror_subdir") {
		cfg.MirrorSubdir = strings.TrimSpace(raw.MirrorSubdir)
	}
	if meta.IsDefined("extensions") {
		cfg.Extensions = raw.Extensions
	}
	if meta.IsDefined("scan_interval") {
		cfg.ScanInterval = time.Duration(raw.ScanInterval * float64(time.Second))
	}
	if meta.IsDefined("state_path") {
		cfg.StatePath = strings.TrimSpace(raw.StatePath)
	}
	if meta.IsDefined("log_level") {
		lvl, err := sysutil.ParseLevel(raw.LogLevel)
		if err != nil {
			return Settings{}, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.LogLevel = lvl
	}
	if meta.IsDefined("blocklist_db") {
		cfg.BlocklistDB = strings.TrimSpace(raw.BlocklistDB)
	}
	if meta.IsDefined("reject_binary") {
		cfg.RejectBinary = raw.RejectBinary
	}
	if meta.IsDefined("watch") {
		cfg.Watch = raw.Watch
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	cfg.Extensions = NormalizeExtensions(cfg.Extensions)
	if err := Validate(cfg); err != nil {
		return Settings{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Settings) error {
	if cfg.MountBase == "" {
		return fmt.Errorf("mount_base is required")
	}
	if cfg.GcodeDir == "" {
		return fmt.Errorf("gcode_dir is required")
	}
	if cfg.MirrorSubdir == "" || strings.ContainsRune(cfg.MirrorSubdir, filepath.Separator) || cfg.MirrorSubdir == "." || cfg.MirrorSubdir == ".." {
		return fmt.Errorf("mirror_subdir must be a single directory name, got %q", cfg.MirrorSubdir)
	}
	if cfg.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	if cfg.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval must be positive, got %v", cfg.ScanInterval)
	}
	if len(cfg.Extensions) == 0 {
		return fmt.Errorf("extensions must name at least one extension")
	}
	return nil
}
