package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults is the base layer Resolve overlays the environment onto.
//
// It is either BuiltinDefaults or the result of LoadFile, which starts from
// BuiltinDefaults and applies the keys present in a YAML file.
type Defaults struct {
	AppName         string   `yaml:"app_name"`
	BundleID        string   `yaml:"bundle_id"`
	SourceDir       string   `yaml:"source_dir"`
	ProjectLocation string   `yaml:"project_location"`
	Platform        Platform `yaml:"platform"`
	SkipBuild       bool     `yaml:"skip_build"`
	SkipCleanup     bool     `yaml:"skip_cleanup"`
	LegacyNames     []string `yaml:"legacy_names"`
	BundleCommand   string   `yaml:"bundle_command"`
	DerivedDataDir  string   `yaml:"derived_data_dir"`
}

// BuiltinDefaults returns the values used when neither a file nor the
// environment provide one.
func BuiltinDefaults() Defaults {
	return Defaults{
		AppName:         "AllAPIHub",
		BundleID:        "com.asm2apex.allapihub",
		SourceDir:       ".output/chrome-mv3",
		ProjectLocation: ".output/safari",
		Platform:        PlatformMacOS,
		BundleCommand:   "pnpm build",
	}
}

// FileError reports a configuration file that could not be loaded.
type FileError struct {
	Path  string
	Cause error
}

func (e *FileError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("config file %s: %v", e.Path, e.Cause)
}

func (e *FileError) Unwrap() error { return e.Cause }

// LoadFile reads a YAML configuration file on top of BuiltinDefaults.
//
// Unknown keys are rejected so that typos do not silently fall back to
// defaults. Empty string values keep the builtin default.
func LoadFile(path string) (Defaults, error) {
	base := BuiltinDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return base, &FileError{Path: path, Cause: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return base, nil
	}

	var file Defaults
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return base, &FileError{Path: path, Cause: err}
	}
	return merge(base, file), nil
}

func merge(base, over Defaults) Defaults {
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) != "" {
			return v
		}
		return fallback
	}
	base.AppName = pick(over.AppName, base.AppName)
	base.BundleID = pick(over.BundleID, base.BundleID)
	base.SourceDir = pick(over.SourceDir, base.SourceDir)
	base.ProjectLocation = pick(over.ProjectLocation, base.ProjectLocation)
	base.BundleCommand = pick(over.BundleCommand, base.BundleCommand)
	base.DerivedDataDir = pick(over.DerivedDataDir, base.DerivedDataDir)
	if over.Platform != "" {
		base.Platform = ParsePlatform(string(over.Platform))
	}
	base.SkipBuild = base.SkipBuild || over.SkipBuild
	base.SkipCleanup = base.SkipCleanup || over.SkipCleanup
	base.LegacyNames = append(append([]string(nil), base.LegacyNames...), over.LegacyNames...)
	return base
}

// Encode writes cfg as YAML.
func Encode(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
