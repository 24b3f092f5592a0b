package models

import "time"

// ErrorKind classifies why a scenario did not pass
type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindProvisioning ErrorKind = "provisioning" // signup endpoint refused or unreachable
	ErrorKindElement      ErrorKind = "element"      // form field or control not found
	ErrorKindOracle       ErrorKind = "oracle"       // page did not show the expected state
	ErrorKindBrowser      ErrorKind = "browser"      // session could not start or navigation failed
	ErrorKindInternal     ErrorKind = "internal"     // panic or cancelled run
)

// ScenarioResult is the outcome of one scenario run
type ScenarioResult struct {
	Scenario     string        `json:"scenario"`
	Outcome      Outcome       `json:"outcome"`
	Account      string        `json:"account,omitempty"` // email of the account used
	Provisioned  bool          `json:"provisioned"`
	FinalURL     string        `json:"final_url,omitempty"`
	Title        string        `json:"title,omitempty"`
	Found        []string      `json:"found,omitempty"`
	Missing      []string      `json:"missing,omitempty"`
	Violations   []string      `json:"violations,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty"`
	Excerpt      string        `json:"excerpt,omitempty"` // body text, or page source for element failures
	Console      []string      `json:"console,omitempty"` // script errors seen in the page
	Duration     time.Duration `json:"duration"`
	StartedAt    time.Time     `json:"started_at"`
	ArtifactsDir string        `json:"artifacts_dir,omitempty"`
}

// Failed reports whether the result should fail the process
func (r ScenarioResult) Failed() bool {
	return !r.Outcome.Succeeded()
}

// RunRecord is one execution of the suite, stored in the ledger
type RunRecord struct {
	ID         string           `json:"id" badgerhold:"key"`
	StartedAt  time.Time        `json:"started_at" badgerhold:"index"`
	FinishedAt time.Time        `json:"finished_at"`
	Frontend   string           `json:"frontend"`
	Results    []ScenarioResult `json:"results"`
	Passed     int              `json:"passed"`
	Partial    int              `json:"partial"`
	Failed     int              `json:"failed"`
	ReportDir  string           `json:"report_dir,omitempty"`
}

// Add appends a result and updates the counters
func (r *RunRecord) Add(result ScenarioResult) {
	r.Results = append(r.Results, result)
	switch result.Outcome {
	case OutcomePass:
		r.Passed++
	case OutcomePartial:
		r.Partial++
	default:
		r.Failed++
	}
}

// Succeeded reports whether every scenario passed or partially passed
func (r RunRecord) Succeeded() bool {
	return r.Failed == 0
}
