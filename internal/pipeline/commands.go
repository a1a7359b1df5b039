package pipeline

import (
	"safaribuild/internal/config"
	"safaribuild/internal/shell"
)

// BundleCommand builds the web extension bundle.
func BundleCommand(cfg config.Config) shell.Command {
	return shell.Line(cfg.BundleCommand)
}

// ConvertCommand runs Apple's Safari web extension converter. Resources are
// copied into the project and the converter never prompts or opens Xcode.
func ConvertCommand(cfg config.Config) shell.Command {
	platformFlag := "--macos-only"
	if cfg.Platform == config.PlatformIOS {
		platformFlag = "--ios-only"
	}
	return shell.Command{
		Name: "xcrun",
		Args: []string{
			"safari-web-extension-converter", cfg.SourceDir,
			"--project-location", cfg.ProjectLocation,
			"--app-name", cfg.AppName,
			"--bundle-identifier", cfg.BundleID,
			platformFlag,
			"--swift",
			"--copy-resources",
			"--no-open",
			"--no-prompt",
			"--force",
		},
	}
}

// BuildCommand compiles the generated macOS project in Debug.
func BuildCommand(cfg config.Config) shell.Command {
	return shell.Command{
		Name: "xcodebuild",
		Args: []string{
			"-project", cfg.XcodeProject(),
			"-scheme", cfg.AppName,
			"-configuration", "Debug",
			"-destination", "platform=macOS",
			"build",
		},
	}
}
