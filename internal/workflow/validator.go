package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// Validator checks a workflow description document against the schema and
// the per-kind constraints of the declared ephemeral services. A validated
// description is the invariant base the orchestrator relies on: steps only
// reference declared services, attribute keys are exact, names are usable.
type Validator struct {
	registry interfaces.ServiceRegistry
	logger   arbor.ILogger
}

// NewValidator creates a workflow description validator
func NewValidator(registry interfaces.ServiceRegistry, logger arbor.ILogger) *Validator {
	return &Validator{
		registry: registry,
		logger:   logger,
	}
}

// Validate parses and validates the substituted workflow description text.
// fileName is only used in error details.
func (v *Validator) Validate(fileName, text string) (*models.WorkflowDescription, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: workflow description %s is not valid YAML: %v", models.ErrValidation, fileName, err)
	}

	if err := exactKeys(fileName, "top level", raw, []string{"workflow", "services", "steps"}, nil); err != nil {
		return nil, err
	}

	wf, ok := raw["workflow"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s: workflow must be a mapping", models.ErrValidation, fileName)
	}
	if err := exactKeys(fileName, "workflow", wf, []string{"name"}, nil); err != nil {
		return nil, err
	}

	var desc models.WorkflowDescription
	if err := yaml.Unmarshal([]byte(text), &desc); err != nil {
		return nil, fmt.Errorf("%w: workflow description %s: %v", models.ErrValidation, fileName, err)
	}

	if err := v.validateServices(fileName, raw, &desc); err != nil {
		return nil, err
	}
	if err := v.validateSteps(fileName, raw, &desc); err != nil {
		return nil, err
	}

	v.logger.Debug().
		Str("workflow", desc.Workflow.Name).
		Int("services", len(desc.Services)).
		Int("steps", len(desc.Steps)).
		Msg("Workflow description validated")

	return &desc, nil
}

func (v *Validator) validateServices(fileName string, raw map[string]interface{}, desc *models.WorkflowDescription) error {
	rawServices, ok := raw["services"].([]interface{})
	if !ok {
		return fmt.Errorf("%w: %s: services must be a sequence", models.ErrValidation, fileName)
	}

	for i, entry := range rawServices {
		svcMap, ok := entry.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: %s: services[%d] must be a mapping", models.ErrValidation, fileName, i)
		}
		if err := exactKeys(fileName, fmt.Sprintf("services[%d]", i), svcMap, []string{"name", "type", "attributes"}, nil); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, svc := range desc.Services {
		if err := ValidateName("service", svc.Name); err != nil {
			return fmt.Errorf("%s (in %s)", err.Error(), fileName)
		}
		if seen[svc.Name] {
			return fmt.Errorf("%w: %s: service %s defined twice", models.ErrValidation, fileName, svc.Name)
		}
		seen[svc.Name] = true

		plugin, err := v.registry.ForKind(svc.Type)
		if err != nil {
			return fmt.Errorf("%w: %s: service %s has unknown type %q", models.ErrNotSupported, fileName, svc.Name, svc.Type)
		}

		if err := v.validateAttributeKeys(fileName, svc, plugin); err != nil {
			return err
		}
		if err := plugin.ValidateAttributes(svc); err != nil {
			return fmt.Errorf("%s: %s", fileName, err.Error())
		}
	}

	// Cross-service constraints, one pass per kind present
	for _, kind := range v.registry.Kinds() {
		svcs := desc.ServicesOfKind(kind)
		if len(svcs) == 0 {
			continue
		}
		plugin, err := v.registry.ForKind(kind)
		if err != nil {
			return err
		}
		if err := plugin.ValidateSet(svcs); err != nil {
			return fmt.Errorf("%s: %s", fileName, err.Error())
		}
	}

	return nil
}

// validateAttributeKeys checks the declared attribute keys against the
// kind's mandatory and optional lists, and that every key carries a value.
func (v *Validator) validateAttributeKeys(fileName string, svc *models.WorkflowService, plugin interfaces.EphemeralService) error {
	mandatory := plugin.MandatoryAttributes()
	allowed := make(map[string]bool, len(mandatory))
	for _, key := range mandatory {
		allowed[key] = true
	}
	for _, key := range plugin.OptionalAttributes() {
		allowed[key] = true
	}

	var unknown, empty []string
	for key, value := range svc.Attributes {
		if !allowed[key] {
			unknown = append(unknown, key)
		}
		if strings.TrimSpace(value) == "" {
			empty = append(empty, key)
		}
	}
	sort.Strings(unknown)
	sort.Strings(empty)

	var missing []string
	for _, key := range mandatory {
		if _, present := svc.Attributes[key]; !present {
			missing = append(missing, key)
		}
	}

	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s: service %s (%s) has unknown attribute keys %v", models.ErrValidation, fileName, svc.Name, svc.Type, unknown)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: service %s (%s) is missing mandatory attribute keys %v", models.ErrValidation, fileName, svc.Name, svc.Type, missing)
	}
	if len(empty) > 0 {
		return fmt.Errorf("%w: %s: service %s has attribute keys without values %v", models.ErrValidation, fileName, svc.Name, empty)
	}
	return nil
}

func (v *Validator) validateSteps(fileName string, raw map[string]interface{}, desc *models.WorkflowDescription) error {
	rawSteps, ok := raw["steps"].([]interface{})
	if !ok {
		return fmt.Errorf("%w: %s: steps must be a sequence", models.ErrValidation, fileName)
	}

	for i, entry := range rawSteps {
		stepMap, ok := entry.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: %s: steps[%d] must be a mapping", models.ErrValidation, fileName, i)
		}
		if err := exactKeys(fileName, fmt.Sprintf("steps[%d]", i), stepMap, []string{"name", "command", "services"}, []string{"location"}); err != nil {
			return err
		}

		refs, ok := stepMap["services"].([]interface{})
		if !ok {
			return fmt.Errorf("%w: %s: steps[%d].services must be a sequence", models.ErrValidation, fileName, i)
		}
		for j, refEntry := range refs {
			refMap, ok := refEntry.(map[string]interface{})
			if !ok {
				return fmt.Errorf("%w: %s: steps[%d].services[%d] must be a mapping", models.ErrValidation, fileName, i, j)
			}
			if err := exactKeys(fileName, fmt.Sprintf("steps[%d].services[%d]", i, j), refMap, []string{"name"}, []string{"datamovers"}); err != nil {
				return err
			}
		}
	}

	seen := make(map[string]bool)
	for _, step := range desc.Steps {
		if err := ValidateName("step", step.Name); err != nil {
			return fmt.Errorf("%s (in %s)", err.Error(), fileName)
		}
		if seen[step.Name] {
			return fmt.Errorf("%w: %s: step %s defined twice", models.ErrState, fileName, step.Name)
		}
		seen[step.Name] = true

		if len(step.Services) > 1 {
			return fmt.Errorf("%w: %s: step %s uses %d services, only one is supported", models.ErrValidation, fileName, step.Name, len(step.Services))
		}
		for _, ref := range step.Services {
			if desc.ServiceByName(ref.Name) == nil {
				return fmt.Errorf("%w: %s: step %s references undefined service %s", models.ErrValidation, fileName, step.Name, ref.Name)
			}
		}
	}

	return nil
}

// exactKeys verifies that m holds all required keys and nothing outside
// required + optional.
func exactKeys(fileName, where string, m map[string]interface{}, required, optional []string) error {
	allowed := make(map[string]bool, len(required)+len(optional))
	for _, key := range required {
		allowed[key] = true
	}
	for _, key := range optional {
		allowed[key] = true
	}

	var unknown []string
	for key := range m {
		if !allowed[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	var missing []string
	for _, key := range required {
		if _, present := m[key]; !present {
			missing = append(missing, key)
		}
	}

	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s: %s has unknown keys %v", models.ErrValidation, fileName, where, unknown)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: %s is missing keys %v", models.ErrValidation, fileName, where, missing)
	}
	return nil
}
