// Package oracle decides scenario outcomes from substring checks over the
// current URL, the rendered markup and the visible body text.
package oracle

import (
	"fmt"
	"strings"

	"github.com/ternarybob/webprobe/internal/models"
)

// Holds reports whether a single check holds for state.
// URL checks are case-insensitive; markup and text checks are not.
func Holds(check models.Check, state models.PageState) bool {
	return newInspector(state).holds(check)
}

// Satisfied reports whether any of checks holds. Used as a wait condition;
// an empty list is never satisfied.
func Satisfied(checks []models.Check, state models.PageState) bool {
	in := newInspector(state)
	for _, c := range checks {
		if in.holds(c) {
			return true
		}
	}
	return false
}

// Evaluate applies the oracle to state.
//
//   - pass: every All check holds, at least one Any check holds (when Any
//     is set) and no None check holds
//   - partial: not a pass, no None violation, and a Partial indicator holds
//   - fail: otherwise, with a reason naming what was missing and what was seen
func Evaluate(o models.Oracle, state models.PageState) models.Verdict {
	in := newInspector(state)
	var v models.Verdict

	for _, c := range o.All {
		if in.holds(c) {
			v.Found = appendUnique(v.Found, c.String())
		} else {
			v.Missing = append(v.Missing, c.String())
		}
	}

	anyOK := len(o.Any) == 0
	for _, c := range o.Any {
		if in.holds(c) {
			anyOK = true
			v.Found = appendUnique(v.Found, c.String())
		}
	}
	if !anyOK {
		v.Missing = append(v.Missing, "any of "+joinChecks(o.Any))
	}

	for _, c := range o.None {
		if in.holds(c) {
			v.Violations = append(v.Violations, c.String())
		}
	}

	partialHit := false
	for _, c := range o.Partial {
		if in.holds(c) {
			partialHit = true
			v.Found = appendUnique(v.Found, c.String())
		}
	}

	switch {
	case len(v.Missing) == 0 && len(v.Violations) == 0:
		v.Outcome = models.OutcomePass
	case len(v.Violations) == 0 && partialHit:
		v.Outcome = models.OutcomePartial
		v.Reason = fmt.Sprintf("partial pass: missing %s; found indicators %s",
			strings.Join(v.Missing, ", "), formatList(v.Found))
	default:
		v.Outcome = models.OutcomeFail
		var parts []string
		if len(v.Missing) > 0 {
			parts = append(parts, "missing "+strings.Join(v.Missing, ", "))
		}
		if len(v.Violations) > 0 {
			parts = append(parts, "unexpected "+strings.Join(v.Violations, ", "))
		}
		parts = append(parts, "found indicators "+formatList(v.Found))
		v.Reason = fmt.Sprintf("expected page state not reached (url %s): %s", state.URL, strings.Join(parts, "; "))
	}

	return v
}

// inspector parses the page text at most once per evaluation
type inspector struct {
	state    models.PageState
	urlLower string
	text     *string
}

func newInspector(state models.PageState) *inspector {
	return &inspector{
		state:    state,
		urlLower: strings.ToLower(state.URL),
	}
}

func (in *inspector) holds(c models.Check) bool {
	switch c.Target {
	case models.CheckTargetURL:
		return strings.Contains(in.urlLower, strings.ToLower(c.Contains))
	case models.CheckTargetMarkup:
		return strings.Contains(in.state.HTML, c.Contains)
	case models.CheckTargetText:
		if in.text == nil {
			t := BodyText(in.state.HTML)
			in.text = &t
		}
		return strings.Contains(*in.text, c.Contains)
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func joinChecks(checks []models.Check) string {
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.String()
	}
	return formatList(names)
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
