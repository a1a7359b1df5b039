// Package pbxproj rewrites bundle identifier assignments in an Xcode
// project.pbxproj file.
//
// The file is treated as text: only `PRODUCT_BUNDLE_IDENTIFIER = value;`
// statements are touched, everything else is preserved byte for byte.
package pbxproj

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"safaribuild/internal/config"
)

// ErrProjectFileMissing reports that the converter did not produce the
// expected project file.
var ErrProjectFileMissing = errors.New("xcode project file not found")

var assignment = regexp.MustCompile(`PRODUCT_BUNDLE_IDENTIFIER = ([^;]+);`)

// Result describes one repair pass.
type Result struct {
	Path string
	// Changed counts assignments whose value differed from the canonical one.
	Changed int
	// Written is false when the content was already canonical.
	Written bool
}

// CanonicalValue returns the value an assignment currently holding current
// must be rewritten to.
//
// The extension target is recognised by a literal trailing ".Extension";
// any identifier that happens to end that way is treated as the extension.
func CanonicalValue(current, bundleID string) string {
	if strings.HasSuffix(current, config.ExtensionSuffix) {
		return bundleID + config.ExtensionSuffix
	}
	return bundleID
}

// Rewrite returns content with every bundle identifier assignment set to its
// canonical value, and the number of assignments whose value changed.
func Rewrite(content []byte, bundleID string) ([]byte, int) {
	changed := 0
	next := assignment.ReplaceAllFunc(content, func(match []byte) []byte {
		raw := assignment.FindSubmatch(match)[1]
		current := strings.TrimSpace(string(raw))
		target := CanonicalValue(current, bundleID)
		if target != current {
			changed++
		}
		return []byte("PRODUCT_BUNDLE_IDENTIFIER = " + target + ";")
	})
	return next, changed
}

// Identifiers lists the current value of every assignment, in file order.
func Identifiers(content []byte) []string {
	var out []string
	for _, m := range assignment.FindAllSubmatch(content, -1) {
		out = append(out, strings.TrimSpace(string(m[1])))
	}
	return out
}

// RepairFile rewrites the file at path in place.
//
// A missing file yields an error wrapping ErrProjectFileMissing. The file is
// only written when its bytes change, keeping its modification time stable
// across idempotent runs.
func RepairFile(path, bundleID string) (Result, error) {
	res := Result{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("%w: %s", ErrProjectFileMissing, path)
		}
		return res, fmt.Errorf("stat %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	next, changed := Rewrite(content, bundleID)
	res.Changed = changed
	if bytes.Equal(next, content) {
		return res, nil
	}

	if err := writeFileAtomic(path, next, info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("write %s: %w", path, err)
	}
	res.Written = true
	return res, nil
}
