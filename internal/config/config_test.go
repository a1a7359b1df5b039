package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Defaults(t *testing.T) {
	cfg := Resolve(BuiltinDefaults(), MapLookup(map[string]string{"HOME": "/Users/dev"}))

	assert.Equal(t, "AllAPIHub", cfg.AppName)
	assert.Equal(t, "com.asm2apex.allapihub", cfg.BundleID)
	assert.Equal(t, ".output/chrome-mv3", cfg.SourceDir)
	assert.Equal(t, ".output/safari", cfg.ProjectLocation)
	assert.Equal(t, PlatformMacOS, cfg.Platform)
	assert.Equal(t, "pnpm build", cfg.BundleCommand)
	assert.False(t, cfg.SkipBuild)
	assert.False(t, cfg.SkipCleanup)
	assert.Equal(t, filepath.Join("/Users/dev", "Library/Developer/Xcode/DerivedData"), cfg.DerivedDataDir)

	// The default app name is itself a historical name and must be excluded.
	assert.Equal(t, []string{"All API Hub"}, cfg.LegacyNames)
}

func TestResolve_EnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvAppName:         "My Ext",
		EnvBundleID:        "com.example.ext",
		EnvSourceDir:       "dist/chrome",
		EnvProjectLocation: "dist/safari",
		EnvPlatform:        "ios",
		EnvSkipBuild:       "1",
		EnvSkipCleanup:     "1",
		EnvBundleCommand:   "npm run build",
		EnvDerivedDataDir:  "/tmp/dd",
		EnvHome:            "/Users/dev",
	}
	cfg := Resolve(BuiltinDefaults(), MapLookup(env))

	assert.Equal(t, "My Ext", cfg.AppName)
	assert.Equal(t, "com.example.ext", cfg.BundleID)
	assert.Equal(t, "dist/chrome", cfg.SourceDir)
	assert.Equal(t, "dist/safari", cfg.ProjectLocation)
	assert.Equal(t, PlatformIOS, cfg.Platform)
	assert.True(t, cfg.SkipBuild)
	assert.True(t, cfg.SkipCleanup)
	assert.Equal(t, "npm run build", cfg.BundleCommand)
	assert.Equal(t, "/tmp/dd", cfg.DerivedDataDir)
	assert.Equal(t, []string{"AllAPIHub", "All API Hub"}, cfg.LegacyNames)
}

func TestResolve_EmptyValuesFallBack(t *testing.T) {
	env := map[string]string{
		EnvAppName:   "",
		EnvBundleID:  "   ",
		EnvPlatform:  "",
		EnvSkipBuild: "",
	}
	cfg := Resolve(BuiltinDefaults(), MapLookup(env))

	assert.Equal(t, "AllAPIHub", cfg.AppName)
	assert.Equal(t, "com.asm2apex.allapihub", cfg.BundleID)
	assert.Equal(t, PlatformMacOS, cfg.Platform)
	assert.False(t, cfg.SkipBuild)
	assert.Empty(t, cfg.DerivedDataDir, "no HOME means no cache root")
}

func TestParsePlatform(t *testing.T) {
	cases := map[string]Platform{
		"ios":     PlatformIOS,
		" ios ":   PlatformMacOS,
		"macos":   PlatformMacOS,
		"IOS":     PlatformMacOS,
		"android": PlatformMacOS,
		"":        PlatformMacOS,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParsePlatform(in), "input %q", in)
	}
}

func TestSkipFlags_OnlyOneMeansSkip(t *testing.T) {
	for _, v := range []string{"0", "true", "yes", "2", " 1", "1 "} {
		cfg := Resolve(BuiltinDefaults(), MapLookup(map[string]string{EnvSkipBuild: v, EnvSkipCleanup: v}))
		assert.False(t, cfg.SkipBuild, "value %q", v)
		assert.False(t, cfg.SkipCleanup, "value %q", v)
	}
}

func TestLegacyNames(t *testing.T) {
	t.Run("extras are trimmed and empty entries dropped", func(t *testing.T) {
		cfg := Resolve(BuiltinDefaults(), MapLookup(map[string]string{
			EnvAppName:     "NewName",
			EnvLegacyNames: " Old1, ,Old2 ,,AllAPIHub",
		}))
		want := []string{"AllAPIHub", "All API Hub", "Old1", "Old2"}
		if diff := cmp.Diff(want, cfg.LegacyNames); diff != "" {
			t.Fatalf("legacy names mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("current name is excluded even when supplied as extra", func(t *testing.T) {
		cfg := Resolve(BuiltinDefaults(), MapLookup(map[string]string{
			EnvAppName:     "Current",
			EnvLegacyNames: "Current,Other",
		}))
		assert.NotContains(t, cfg.LegacyNames, "Current")
		assert.Contains(t, cfg.LegacyNames, "Other")
	})

	t.Run("current name never present for arbitrary sets", func(t *testing.T) {
		names := []string{"A", "B", "All API Hub", "AllAPIHub", "C D"}
		for _, current := range names {
			got := LegacyNames(current, names, []string{current})
			assert.NotContains(t, got, current)
		}
	})

	t.Run("names that are not a single path element are dropped", func(t *testing.T) {
		cfg := Resolve(BuiltinDefaults(), MapLookup(map[string]string{
			EnvAppName:     "Current",
			EnvLegacyNames: ".,..,a/b,a/../..,Old",
		}))
		want := []string{"AllAPIHub", "All API Hub", "Old"}
		if diff := cmp.Diff(want, cfg.LegacyNames); diff != "" {
			t.Fatalf("legacy names mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("historical names always included unless current", func(t *testing.T) {
		got := LegacyNames("X")
		assert.Equal(t, HistoricalAppNames, got)
	})
}

func TestIsPlainName(t *testing.T) {
	for _, name := range []string{"Old", "All API Hub", "a.b", "..x"} {
		assert.True(t, IsPlainName(name), "name %q", name)
	}
	for _, name := range []string{"", ".", "..", "a/b", "/abs", "a/../.."} {
		assert.False(t, IsPlainName(name), "name %q", name)
	}
}

func TestSplitNames(t *testing.T) {
	assert.Nil(t, SplitNames(""))
	assert.Nil(t, SplitNames(" , ,"))
	assert.Equal(t, []string{"a", "b c"}, SplitNames("a, b c ,"))
}

func TestConfigPaths(t *testing.T) {
	cfg := Config{AppName: "Hub", ProjectLocation: "out/safari", BundleID: "com.x"}

	assert.Equal(t, filepath.Join("out/safari", "Hub"), cfg.ProjectRoot())
	assert.Equal(t, filepath.Join("out/safari", "Hub", "Hub.xcodeproj"), cfg.XcodeProject())
	assert.Equal(t, filepath.Join("out/safari", "Hub", "Hub.xcodeproj", "project.pbxproj"), cfg.PbxprojPath())
	assert.Equal(t, "com.x.Extension", cfg.ExtensionBundleID())
}

func TestShouldBuild(t *testing.T) {
	assert.True(t, Config{Platform: PlatformMacOS}.ShouldBuild())
	assert.False(t, Config{Platform: PlatformMacOS, SkipBuild: true}.ShouldBuild())
	assert.False(t, Config{Platform: PlatformIOS}.ShouldBuild())
}

func TestLoadFile_LayersUnderEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safari.yaml")
	content := `app_name: FromFile
bundle_id: com.file.app
platform: ios
skip_cleanup: true
legacy_names:
  - FileLegacy
bundle_command: make bundle
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	base, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FromFile", base.AppName)
	assert.Equal(t, ".output/chrome-mv3", base.SourceDir, "keys absent from the file keep builtin values")

	cfg := Resolve(base, MapLookup(map[string]string{
		EnvBundleID:    "com.env.app",
		EnvSkipCleanup: "0",
		EnvLegacyNames: "EnvLegacy",
	}))
	assert.Equal(t, "FromFile", cfg.AppName)
	assert.Equal(t, "com.env.app", cfg.BundleID)
	assert.Equal(t, PlatformIOS, cfg.Platform)
	assert.False(t, cfg.SkipCleanup, "environment wins over the file")
	assert.Equal(t, "make bundle", cfg.BundleCommand)
	assert.Equal(t, []string{"AllAPIHub", "All API Hub", "FileLegacy", "EnvLegacy"}, cfg.LegacyNames)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("app_nmae: typo\n"), 0o644))
	_, err = LoadFile(bad)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, bad, fe.Path)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	base, err := LoadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, BuiltinDefaults(), base)
}

func TestEncode(t *testing.T) {
	cfg := Resolve(BuiltinDefaults(), MapLookup(nil))
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg))

	out := buf.String()
	assert.Contains(t, out, "app_name: AllAPIHub")
	assert.Contains(t, out, "platform: macos")
	assert.Contains(t, out, "- All API Hub")
}

func TestConfig_Under(t *testing.T) {
	cfg := Resolve(BuiltinDefaults(), MapLookup(map[string]string{
		EnvSourceDir: "/abs/dist",
	}))
	got := cfg.Under("/work")

	assert.Equal(t, "/abs/dist", got.SourceDir)
	assert.Equal(t, filepath.Join("/work", ".output/safari"), got.ProjectLocation)
	assert.Equal(t, filepath.Join("/work", ".output/safari", "AllAPIHub", "AllAPIHub.xcodeproj", "project.pbxproj"), got.PbxprojPath())
	assert.Equal(t, ".output/safari", cfg.ProjectLocation, "receiver is unchanged")
	assert.Equal(t, cfg, cfg.Under(""))
}
