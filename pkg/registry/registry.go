// pkg/registry/registry.go
package registry

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

func LoadRegistry(path string) (*WorkerRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg WorkerRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks structural integrity: every worker needs an id and a
// task type, and both must be unique across the registry.
func (r *WorkerRegistry) Validate() error {
	ids := make(map[string]bool, len(r.Workers))
	taskTypes := make(map[string]bool, len(r.Workers))

	for _, w := range r.Workers {
		if w.ID == "" {
			return fmt.Errorf("worker with empty id")
		}
		if w.TaskType == "" {
			return fmt.Errorf("worker %s has no task type", w.ID)
		}
		if ids[w.ID] {
			return fmt.Errorf("duplicate worker id: %s", w.ID)
		}
		if taskTypes[w.TaskType] {
			return fmt.Errorf("duplicate task type: %s", w.TaskType)
		}
		ids[w.ID] = true
		taskTypes[w.TaskType] = true
	}
	return nil
}

// FindByTaskType returns the registry entry for a Zeebe task type.
func (r *WorkerRegistry) FindByTaskType(taskType string) (*Worker, bool) {
	for i := range r.Workers {
		if r.Workers[i].TaskType == taskType {
			return &r.Workers[i], true
		}
	}
	return nil, false
}
