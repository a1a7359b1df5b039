// Package config resolves the immutable pipeline configuration.
//
// Configuration is derived once at the process boundary from an environment
// lookup function (and optionally a YAML file) and then passed by value into
// every component. No other package reads the process environment.
package config

import (
	"path/filepath"
	"slices"
	"strings"
)

// Platform selects which Safari platform the converter targets.
type Platform string

const (
	// PlatformMacOS is the primary platform. Only macOS projects are compiled.
	PlatformMacOS Platform = "macos"
	// PlatformIOS is the secondary platform.
	PlatformIOS Platform = "ios"
)

// Environment variable names.
const (
	EnvAppName         = "SAFARI_APP_NAME"
	EnvBundleID        = "SAFARI_BUNDLE_ID"
	EnvSourceDir       = "SAFARI_SOURCE_DIR"
	EnvProjectLocation = "SAFARI_PROJECT_LOCATION"
	EnvPlatform        = "SAFARI_PLATFORM"
	EnvSkipBuild       = "SAFARI_SKIP_XCODEBUILD"
	EnvSkipCleanup     = "SAFARI_SKIP_CLEANUP"
	EnvLegacyNames     = "SAFARI_CLEAN_LEGACY_NAMES"
	EnvBundleCommand   = "SAFARI_BUNDLE_COMMAND"
	EnvDerivedDataDir  = "SAFARI_DERIVED_DATA_DIR"
	EnvConfigFile      = "SAFARI_CONFIG"
	EnvHome            = "HOME"
)

// ExtensionSuffix is appended to the bundle identifier of the extension target.
const ExtensionSuffix = ".Extension"

// derivedDataRel is the Xcode DerivedData location relative to the user's home.
const derivedDataRel = "Library/Developer/Xcode/DerivedData"

// HistoricalAppNames are display names used by earlier releases. Their
// projects and DerivedData entries are always candidates for cleanup.
var HistoricalAppNames = []string{"AllAPIHub", "All API Hub"}

// Config is the fully resolved pipeline configuration.
//
// A Config is built once by Resolve and never mutated afterwards. It is passed
// by value; LegacyNames is a private copy owned by the value.
type Config struct {
	AppName         string   `yaml:"app_name"`
	BundleID        string   `yaml:"bundle_id"`
	SourceDir       string   `yaml:"source_dir"`
	ProjectLocation string   `yaml:"project_location"`
	Platform        Platform `yaml:"platform"`
	SkipBuild       bool     `yaml:"skip_build"`
	SkipCleanup     bool     `yaml:"skip_cleanup"`

	// LegacyNames never contains AppName. Order is insertion order.
	LegacyNames []string `yaml:"legacy_names"`

	// BundleCommand is the shell line that produces SourceDir.
	BundleCommand string `yaml:"bundle_command"`

	// DerivedDataDir is the Xcode cache root. Empty when no home directory
	// could be resolved.
	DerivedDataDir string `yaml:"derived_data_dir"`
}

// ProjectRoot is the directory the converter creates for AppName.
func (c Config) ProjectRoot() string {
	return filepath.Join(c.ProjectLocation, c.AppName)
}

// XcodeProject is the path of the generated .xcodeproj bundle.
func (c Config) XcodeProject() string {
	return filepath.Join(c.ProjectRoot(), c.AppName+".xcodeproj")
}

// PbxprojPath is the path of the project metadata file patched after conversion.
func (c Config) PbxprojPath() string {
	return filepath.Join(c.XcodeProject(), "project.pbxproj")
}

// ExtensionBundleID is the canonical identifier of the extension target.
func (c Config) ExtensionBundleID() string {
	return c.BundleID + ExtensionSuffix
}

// ShouldBuild reports whether the native build stage applies to c.
func (c Config) ShouldBuild() bool {
	return c.Platform == PlatformMacOS && !c.SkipBuild
}

// Under returns a copy of c whose relative directories are anchored at dir.
// DerivedDataDir is left alone; it is never relative to the project.
func (c Config) Under(dir string) Config {
	if dir == "" {
		return c
	}
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.SourceDir = anchor(c.SourceDir)
	c.ProjectLocation = anchor(c.ProjectLocation)
	c.LegacyNames = slices.Clone(c.LegacyNames)
	return c
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a map to a LookupFunc. Useful for tests and callers that
// already hold a snapshot of the environment.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// Resolve builds a Config from base, overlaid with values found via lookup.
//
// Resolve never fails: empty or absent variables keep the base value, and
// malformed entries in the legacy name list are dropped.
func Resolve(base Defaults, lookup LookupFunc) Config {
	if lookup == nil {
		lookup = MapLookup(nil)
	}
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		AppName:         get(EnvAppName, base.AppName),
		BundleID:        get(EnvBundleID, base.BundleID),
		SourceDir:       get(EnvSourceDir, base.SourceDir),
		ProjectLocation: get(EnvProjectLocation, base.ProjectLocation),
		BundleCommand:   get(EnvBundleCommand, base.BundleCommand),
		Platform:        ParsePlatform(get(EnvPlatform, string(base.Platform))),
		SkipBuild:       flagValue(lookup, EnvSkipBuild, base.SkipBuild),
		SkipCleanup:     flagValue(lookup, EnvSkipCleanup, base.SkipCleanup),
	}

	cfg.DerivedDataDir = base.DerivedDataDir
	if dir := get(EnvDerivedDataDir, ""); dir != "" {
		cfg.DerivedDataDir = dir
	} else if cfg.DerivedDataDir == "" {
		if home := get(EnvHome, ""); home != "" {
			cfg.DerivedDataDir = filepath.Join(home, derivedDataRel)
		}
	}

	extras, _ := lookup(EnvLegacyNames)
	cfg.LegacyNames = LegacyNames(cfg.AppName, base.LegacyNames, SplitNames(extras))
	return cfg
}

// ParsePlatform maps exactly "ios" to PlatformIOS and anything else,
// including padded or differently cased values, to PlatformMacOS.
func ParsePlatform(raw string) Platform {
	if raw == string(PlatformIOS) {
		return PlatformIOS
	}
	return PlatformMacOS
}

func flagValue(lookup LookupFunc, key string, fallback bool) bool {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	return v == "1"
}

// SplitNames splits a comma separated list, trimming entries and dropping
// empty ones.
func SplitNames(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// LegacyNames returns HistoricalAppNames followed by each extra group,
// de-duplicated in first-seen order, with current removed. Names that are not
// a single path element are dropped.
func LegacyNames(current string, extras ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if !IsPlainName(name) || name == current || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	add(HistoricalAppNames)
	for _, group := range extras {
		add(group)
	}
	return slices.Clip(out)
}

// IsPlainName reports whether name is usable as one directory name under the
// project location: non-empty, not "." or "..", and free of path separators.
func IsPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator)
}
