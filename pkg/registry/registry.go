// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"medsearch-service/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, creating the directory.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// FindByTaskType returns the activity bound to a Zeebe job type.
func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks required fields, id format, unique ids, statuses,
// parseable timeouts and that every input schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, activity := range r.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if err := validation.ValidateActivityNaming(activity.ID); err != nil {
			return fmt.Errorf("activity %s: %w", activity.ID, err)
		}
		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}
		if !activity.ImplementationStatus.Valid() {
			return fmt.Errorf("activity %s: unknown implementation status %q", activity.ID, activity.ImplementationStatus)
		}
		if activity.Retries < 0 {
			return fmt.Errorf("activity %s: retries must not be negative", activity.ID)
		}
		if _, err := activity.TimeoutDuration(); err != nil {
			return fmt.Errorf("activity %s: %w", activity.ID, err)
		}
		if _, err := activity.InputValidator(); err != nil {
			return fmt.Errorf("activity %s: %w", activity.ID, err)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout; an empty value is zero.
func (a *Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", a.Timeout, err)
	}
	return d, nil
}

// InputValidator compiles InputSchema. A nil validator means the activity
// declares no input schema.
func (a *Activity) InputValidator() (*validation.Validator, error) {
	if len(a.InputSchema) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(a.InputSchema)
	if err != nil {
		return nil, err
	}
	schema, err := validation.GetSchemaFromJSON(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid input schema: %w", err)
	}
	return validation.NewValidator(schema)
}
