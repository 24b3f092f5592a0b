package models

import "fmt"

// CheckTarget selects which part of the page state a check inspects
type CheckTarget string

const (
	CheckTargetURL    CheckTarget = "url"    // current URL, case-insensitive
	CheckTargetMarkup CheckTarget = "markup" // rendered page source
	CheckTargetText   CheckTarget = "text"   // visible body text
)

// IsValid checks if the CheckTarget is a known target
func (t CheckTarget) IsValid() bool {
	switch t {
	case CheckTargetURL, CheckTargetMarkup, CheckTargetText:
		return true
	}
	return false
}

// Check is a single substring predicate over the page state
type Check struct {
	Target   CheckTarget `json:"target" toml:"target" yaml:"target"`
	Contains string      `json:"contains" toml:"contains" yaml:"contains"`
}

// String renders the check for logs and failure reasons, e.g. url~"dashboard"
func (c Check) String() string {
	return fmt.Sprintf("%s~%q", c.Target, c.Contains)
}

// URLContains builds a url check
func URLContains(s string) Check { return Check{Target: CheckTargetURL, Contains: s} }

// MarkupContains builds a markup check
func MarkupContains(s string) Check { return Check{Target: CheckTargetMarkup, Contains: s} }

// TextContains builds a visible-text check
func TextContains(s string) Check { return Check{Target: CheckTargetText, Contains: s} }

// Oracle decides a scenario outcome.
//
//	All      every check must hold
//	Any      at least one must hold (ignored when empty)
//	None     no check may hold
//	Partial  indicators that downgrade a failure to a partial pass
type Oracle struct {
	All     []Check `json:"all,omitempty" toml:"all" yaml:"all"`
	Any     []Check `json:"any,omitempty" toml:"any" yaml:"any"`
	None    []Check `json:"none,omitempty" toml:"none" yaml:"none"`
	Partial []Check `json:"partial,omitempty" toml:"partial" yaml:"partial"`
}

// IsEmpty reports whether the oracle has no checks at all
func (o Oracle) IsEmpty() bool {
	return len(o.All) == 0 && len(o.Any) == 0 && len(o.None) == 0 && len(o.Partial) == 0
}

// Outcome is the verdict of a scenario
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomePartial Outcome = "partial"
	OutcomeFail    Outcome = "fail"
)

// Succeeded reports whether the outcome counts towards a zero exit status
func (o Outcome) Succeeded() bool {
	return o == OutcomePass || o == OutcomePartial
}

// Verdict is the result of evaluating an oracle against one page state
type Verdict struct {
	Outcome    Outcome  `json:"outcome"`
	Found      []string `json:"found,omitempty"`      // checks that held
	Missing    []string `json:"missing,omitempty"`    // required checks that did not hold
	Violations []string `json:"violations,omitempty"` // forbidden checks that held
	Reason     string   `json:"reason,omitempty"`
}
