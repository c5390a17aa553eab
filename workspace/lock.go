package workspace

import (
	"encoding/json"
	"fmt"
)

// parseLock interprets the "lock" field. It returns the configured path, and
// set=true with an empty path when locking is disabled.
func parseLock(raw json.RawMessage) (p string, set bool, err error) {
	var enabled bool
	if json.Unmarshal(raw, &enabled) == nil {
		return "", !enabled, nil
	}
	if json.Unmarshal(raw, &p) == nil {
		return p, false, nil
	}
	var obj struct {
		Path   *string `json:"path"`
		Frozen *bool   `json:"frozen"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false, fmt.Errorf("expected a boolean, a path or an object")
	}
	if obj.Path != nil {
		return *obj.Path, false, nil
	}
	return "", false, nil
}
