package pipeline

import (
	"encoding/json"
	"os"

	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/catalog"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// SnapshotPaths names the input files for one file-fed run.  Products is
// mandatory; the metric files and the url map are optional and an empty path
// simply yields an empty stream.
type SnapshotPaths struct {
	Products   string
	Search     string
	Behavioral string
	URLMap     string
}

// LoadSnapshot reads the snapshot inputs from JSON files.
func LoadSnapshot(paths SnapshotPaths) (*catalog.Snapshot, error) {
	if paths.Products == "" {
		return nil, errors.New(errors.ErrCodeValidation, "products file is required")
	}

	snap := &catalog.Snapshot{URLToNode: make(map[string]common.NodeID)}
	if err := readJSONFile(paths.Products, &snap.Products); err != nil {
		return nil, err
	}
	if paths.Search != "" {
		if err := readJSONFile(paths.Search, &snap.SearchMetrics); err != nil {
			return nil, err
		}
	}
	if paths.Behavioral != "" {
		if err := readJSONFile(paths.Behavioral, &snap.BehavioralMetrics); err != nil {
			return nil, err
		}
	}
	if paths.URLMap != "" {
		if err := readJSONFile(paths.URLMap, &snap.URLToNode); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func readJSONFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "snapshot file unreadable").
			WithDetail("path=" + path)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "snapshot file is not valid JSON").
			WithDetail("path=" + path)
	}
	return nil
}
