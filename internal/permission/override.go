package permission

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const overrideFileMode = 0600

// OverrideState holds a TTL-bounded runtime safety-mode override. When the
// TTL elapses the configured mode applies again.
type OverrideState struct {
	Mode  Mode      `json:"mode"`
	Until time.Time `json:"until"`
}

// Active reports whether the override applies at the given instant.
func (o OverrideState) Active(now time.Time) bool {
	if strings.TrimSpace(string(o.Mode)) == "" {
		return false
	}
	return o.Until.IsZero() || o.Until.After(now)
}

// OverrideManager persists the runtime override.
type OverrideManager struct {
	path string
	mu   sync.Mutex
}

// NewOverrideManager creates an override manager under <baseDir>/state.
func NewOverrideManager(baseDir string) *OverrideManager {
	return &OverrideManager{
		path: filepath.Join(baseDir, "state", "policy_override.json"),
	}
}

// Load reads the override from disk. Missing or malformed files are treated
// as no override.
func (m *OverrideManager) Load() (OverrideState, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return OverrideState{}, nil
		}
		return OverrideState{}, err
	}

	var st OverrideState
	if err := json.Unmarshal(data, &st); err != nil {
		return OverrideState{}, nil
	}
	return st, nil
}

// Save writes the override to disk. An empty mode clears it.
func (m *OverrideManager) Save(st OverrideState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(string(st.Mode)) == "" {
		err := os.Remove(m.path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, overrideFileMode)
}

// Clear removes any persisted override.
func (m *OverrideManager) Clear() error {
	return m.Save(OverrideState{})
}
