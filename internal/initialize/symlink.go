package initialize

import (
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// linkResult reports what EnsureSymlink did.
type linkResult int

const (
	linkCreated linkResult = iota
	linkExists
	linkConflict
)

// EnsureSymlink makes dst a symlink to src. An existing link to src is
// left alone; anything else at dst is a conflict and is not touched.
func EnsureSymlink(src, dst string) (linkResult, error) {
	current, err := os.Readlink(dst)
	if err == nil {
		if current == src {
			return linkExists, nil
		}
		return linkConflict, nil
	}
	if _, statErr := os.Lstat(dst); statErr == nil {
		// Regular file in the way.
		return linkConflict, nil
	}

	if err := os.Symlink(src, dst); err != nil {
		return linkConflict, fmt.Errorf("failed to symlink %s -> %s: %w", dst, src, err)
	}
	return linkCreated, nil
}

// ConflictDiff renders a unified diff between the expected content (src)
// and whatever currently sits at dst, for the conflict message.
func ConflictDiff(src, dst string) string {
	want, err := os.ReadFile(src)
	if err != nil {
		return ""
	}
	have, err := os.ReadFile(dst)
	if err != nil {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(want)),
		B:        difflib.SplitLines(string(have)),
		FromFile: src,
		ToFile:   dst,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// CopyIfAbsent copies src to dst unless dst already exists.
func CopyIfAbsent(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return true, nil
}
