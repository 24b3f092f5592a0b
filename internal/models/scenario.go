package models

// StepAction names what a scenario step does
type StepAction string

const (
	StepActionNavigate     StepAction = "navigate"      // load Route relative to the front-end base URL
	StepActionHideOverlays StepAction = "hide_overlays" // inject CSS hiding dev-tool overlays
	StepActionFill         StepAction = "fill"          // type Fields into inputs by element id
	StepActionSubmit       StepAction = "submit"        // click Selector, default button[type=submit]
	StepActionWait         StepAction = "wait"          // poll until any Until check holds
)

// IsValid checks if the StepAction is a known action
func (a StepAction) IsValid() bool {
	switch a {
	case StepActionNavigate, StepActionHideOverlays, StepActionFill, StepActionSubmit, StepActionWait:
		return true
	}
	return false
}

// String returns the string representation of the StepAction
func (a StepAction) String() string {
	return string(a)
}

// DefaultSubmitSelector is the submit control every form under test uses
const DefaultSubmitSelector = "button[type=submit]"

// Step is one state-machine transition of a scenario.
// Field values may reference {username}, {email}, {password} and {timestamp}.
type Step struct {
	Action   StepAction        `json:"action" toml:"action" yaml:"action"`
	Route    string            `json:"route,omitempty" toml:"route" yaml:"route"`
	Fields   map[string]string `json:"fields,omitempty" toml:"fields" yaml:"fields"`
	Selector string            `json:"selector,omitempty" toml:"selector" yaml:"selector"`
	Until    []Check           `json:"until,omitempty" toml:"until" yaml:"until"`
	Timeout  string            `json:"timeout,omitempty" toml:"timeout" yaml:"timeout"` // overrides wait.timeout
	// Order lists Fields keys in typing order; map order is random. Keys
	// missing from Order are typed afterwards in sorted order.
	Order []string `json:"order,omitempty" toml:"order" yaml:"order"`
}

// Scenario is one parameterized flow: optional provisioning, then Steps,
// then the Oracle over the final page state.
type Scenario struct {
	Name        string `json:"name" toml:"name" yaml:"name"`
	Description string `json:"description,omitempty" toml:"description" yaml:"description"`
	Provision   bool   `json:"provision" toml:"provision" yaml:"provision"`
	Steps       []Step `json:"steps" toml:"steps" yaml:"steps"`
	Oracle      Oracle `json:"oracle" toml:"oracle" yaml:"oracle"`
	Source      string `json:"source,omitempty" toml:"-" yaml:"-"` // "builtin" or file path
}
