// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"sales-predictor/internal/common/validation"
)

//go:embed activities.json
var defaultActivities []byte

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	return Parse(defaultActivities)
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a registry document and checks every activity id.
func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	seen := make(map[string]bool, len(reg.Activities))
	for _, a := range reg.Activities {
		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			return nil, fmt.Errorf("activity %q: %w", a.ID, err)
		}
		if a.TaskType == "" {
			return nil, fmt.Errorf("activity %q: taskType is required", a.ID)
		}
		if seen[a.TaskType] {
			return nil, fmt.Errorf("duplicate taskType %q", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return &reg, nil
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// TimeoutDuration parses Timeout, falling back to def when empty or malformed.
func (a *Activity) TimeoutDuration(def time.Duration) time.Duration {
	if a.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// OutputValidator compiles the activity's output schema.
func (a *Activity) OutputValidator() (*validation.Validator, error) {
	if len(a.OutputSchema) == 0 {
		return nil, fmt.Errorf("activity %q has no output schema", a.ID)
	}
	return validation.NewValidator(a.OutputSchema)
}

// InputValidator compiles the activity's input schema.
func (a *Activity) InputValidator() (*validation.Validator, error) {
	if len(a.InputSchema) == 0 {
		return nil, fmt.Errorf("activity %q has no input schema", a.ID)
	}
	return validation.NewValidator(a.InputSchema)
}
