// pkg/registry/schema.go
package registry

// ActivityRegistry is the on-disk catalogue of workflow activities the
// worker manager can serve.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated,omitempty"`
	Activities  []Activity `json:"activities"`
}

// Activity binds a BPMN service task (TaskType) to its contract. Timeout is
// a Go duration string and becomes the Zeebe job timeout.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description,omitempty"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version,omitempty"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus Status                 `json:"implementationStatus,omitempty"`
	InputSchema          map[string]interface{} `json:"inputSchema,omitempty"`
	OutputSchema         map[string]interface{} `json:"outputSchema,omitempty"`
	ErrorCodes           []string               `json:"errorCodes,omitempty"`
	Timeout              string                 `json:"timeout,omitempty"`
	Retries              int                    `json:"retries,omitempty"`
	Workflows            []string               `json:"workflows,omitempty"`
	Tags                 []string               `json:"tags,omitempty"`
}

type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusVerified   Status = "verified"
)

// Valid reports whether s is a known status. Empty counts as planned.
func (s Status) Valid() bool {
	switch s {
	case "", StatusPlanned, StatusInProgress, StatusCompleted, StatusVerified:
		return true
	}
	return false
}

// Servable reports whether a worker may be started for the activity.
func (s Status) Servable() bool {
	return s == StatusCompleted || s == StatusVerified
}
