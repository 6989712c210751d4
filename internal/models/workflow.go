package models

import "fmt"

// WorkflowDescription is the parsed workflow description document declaring
// the ephemeral services to provision and the steps that use them.
type WorkflowDescription struct {
	Workflow WorkflowHeader     `yaml:"workflow" json:"workflow"`
	Services []*WorkflowService `yaml:"services" json:"services"`
	Steps    []*WorkflowStep    `yaml:"steps" json:"steps"`
}

// WorkflowHeader carries the workflow-level keys (exactly {name})
type WorkflowHeader struct {
	Name string `yaml:"name" json:"name"`
}

// Attributes holds service attribute key/value pairs. Scalar YAML values of
// any type decode to their string form so workflows may write unquoted
// numbers (datanodes: 2).
type Attributes map[string]string

// UnmarshalYAML implements yaml.Unmarshaler
func (a *Attributes) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	out := make(Attributes, len(raw))
	for key, value := range raw {
		if value == nil {
			out[key] = ""
			continue
		}
		out[key] = fmt.Sprintf("%v", value)
	}
	*a = out
	return nil
}

// WorkflowService declares one ephemeral service. Attributes keys must
// exactly match the mandatory and optional key lists of the declared kind.
type WorkflowService struct {
	Name       string      `yaml:"name" json:"name"`
	Type       ServiceKind `yaml:"type" json:"type"`
	Attributes Attributes  `yaml:"attributes" json:"attributes"`
}

// WorkflowStep declares one batch step and the (at most one) service it uses
type WorkflowStep struct {
	Name     string                `yaml:"name" json:"name"`
	Command  string                `yaml:"command" json:"command"`
	Location string                `yaml:"location,omitempty" json:"location,omitempty"`
	Services []*WorkflowServiceRef `yaml:"services" json:"services"`
}

// WorkflowServiceRef references a declared service from a step
type WorkflowServiceRef struct {
	Name       string   `yaml:"name" json:"name"`
	Datamovers []string `yaml:"datamovers,omitempty" json:"datamovers,omitempty"`
}

// ServiceByName returns the declared service with the given name, or nil
func (w *WorkflowDescription) ServiceByName(name string) *WorkflowService {
	for _, svc := range w.Services {
		if svc.Name == name {
			return svc
		}
	}
	return nil
}

// ServicesOfKind returns the declared services of the given kind, in
// declaration order.
func (w *WorkflowDescription) ServicesOfKind(kind ServiceKind) []*WorkflowService {
	var out []*WorkflowService
	for _, svc := range w.Services {
		if svc.Type == kind {
			out = append(out, svc)
		}
	}
	return out
}

// UsedServiceNames returns the names of services referenced by at least one
// step, in service declaration order.
func (w *WorkflowDescription) UsedServiceNames() []string {
	used := make(map[string]bool)
	for _, step := range w.Steps {
		for _, ref := range step.Services {
			used[ref.Name] = true
		}
	}
	var out []string
	for _, svc := range w.Services {
		if used[svc.Name] {
			out = append(out, svc.Name)
		}
	}
	return out
}
