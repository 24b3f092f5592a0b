package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/webprobe/internal/models"
)

// Validate rejects scenarios the runner could not execute meaningfully
func Validate(sc models.Scenario) error {
	if strings.TrimSpace(sc.Name) == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %s: at least one step is required", sc.Name)
	}
	if sc.Oracle.IsEmpty() {
		return fmt.Errorf("scenario %s: oracle has no checks", sc.Name)
	}

	for i, step := range sc.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("scenario %s: step %d (%s): %w", sc.Name, i+1, step.Action, err)
		}
	}

	for _, group := range [][]models.Check{sc.Oracle.All, sc.Oracle.Any, sc.Oracle.None, sc.Oracle.Partial} {
		if err := validateChecks(group); err != nil {
			return fmt.Errorf("scenario %s: oracle: %w", sc.Name, err)
		}
	}

	return nil
}

func validateStep(step models.Step) error {
	if !step.Action.IsValid() {
		return fmt.Errorf("unknown action %q", step.Action)
	}

	switch step.Action {
	case models.StepActionNavigate:
		if strings.TrimSpace(step.Route) == "" {
			return fmt.Errorf("navigate step requires a route")
		}
	case models.StepActionFill:
		if len(step.Fields) == 0 {
			return fmt.Errorf("fill step requires fields")
		}
		for _, key := range step.Order {
			if _, ok := step.Fields[key]; !ok {
				return fmt.Errorf("order names unknown field %q", key)
			}
		}
	case models.StepActionWait:
		if len(step.Until) == 0 {
			return fmt.Errorf("wait step requires at least one until check")
		}
		if err := validateChecks(step.Until); err != nil {
			return err
		}
	}

	if step.Timeout != "" {
		d, err := time.ParseDuration(step.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", step.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", step.Timeout)
		}
	}

	return nil
}

func validateChecks(checks []models.Check) error {
	for _, c := range checks {
		if !c.Target.IsValid() {
			return fmt.Errorf("unknown check target %q", c.Target)
		}
		if c.Contains == "" {
			return fmt.Errorf("check on %s has an empty contains", c.Target)
		}
	}
	return nil
}

// Select returns the scenarios named in names, in catalogue order.
// An empty names list selects everything; an unknown name is an error.
func Select(catalogue []models.Scenario, names []string) ([]models.Scenario, error) {
	if len(names) == 0 {
		return catalogue, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.TrimSpace(n)] = true
	}

	var selected []models.Scenario
	for _, sc := range catalogue {
		if wanted[sc.Name] {
			selected = append(selected, sc)
			delete(wanted, sc.Name)
		}
	}

	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for n := range wanted {
			unknown = append(unknown, n)
		}
		return nil, fmt.Errorf("unknown scenario(s): %s", strings.Join(unknown, ", "))
	}

	return selected, nil
}
