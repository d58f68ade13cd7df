package audit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDataset reads an exported permission dataset from a YAML file.
// A missing file yields an empty dataset so the view can still render.
func LoadDataset(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	ds.sortRecords()
	return &ds, nil
}
