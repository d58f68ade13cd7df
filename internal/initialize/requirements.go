package initialize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RequirementsDir is the conventional location of dependency lists
// inside a project.
const RequirementsDir = "requirements"

// AggregateRequirements merges every requirements*.txt under the
// conventional subdirectory into one deduplicated, sorted dependency
// list. Comment and blank lines are dropped. A project without a
// requirements directory yields an empty list.
func AggregateRequirements(root string) ([]string, error) {
	pattern := filepath.Join(root, RequirementsDir, "requirements*.txt")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob requirements files: %w", err)
	}

	seen := map[string]bool{}
	var reqs []string
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if !seen[line] {
				seen[line] = true
				reqs = append(reqs, line)
			}
		}
	}
	sort.Strings(reqs)
	return reqs, nil
}

// WriteAggregated writes the merged list under .output so pip can
// install from a single file. Returns the written path.
func WriteAggregated(root string, reqs []string) (string, error) {
	out := filepath.Join(root, ".output", "requirements.txt")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	content := strings.Join(reqs, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write aggregated requirements: %w", err)
	}
	return out, nil
}
