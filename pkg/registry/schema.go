// pkg/registry/schema.go
package registry

// Schema is a JSON Schema document kept in its decoded form.
type Schema = map[string]interface{}

// ActivityRegistry lists the BPMN service tasks this service can serve.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity binds a Zeebe task type to the contract of its job variables.
// ErrorCodes lists the BPMN error codes the worker may throw.
type Activity struct {
	ID                   string   `json:"id"`
	DisplayName          string   `json:"displayName"`
	Description          string   `json:"description,omitempty"`
	Category             string   `json:"category"`
	Version              string   `json:"version"`
	TaskType             string   `json:"taskType"`
	ImplementationStatus string   `json:"implementationStatus,omitempty"`
	InputSchema          Schema   `json:"inputSchema"`
	OutputSchema         Schema   `json:"outputSchema"`
	ErrorCodes           []string `json:"errorCodes"`
	Timeout              string   `json:"timeout,omitempty"` // Go duration, e.g. "10s"
	Retries              int      `json:"retries"`
	Workflows            []string `json:"workflows,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
}

// Throws reports whether code is one of the activity's declared BPMN errors.
func (a *Activity) Throws(code string) bool {
	for _, c := range a.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}
