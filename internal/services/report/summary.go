package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/webprobe/internal/models"
	"github.com/ternarybob/webprobe/internal/services/oracle"
)

// Summary renders a run as markdown: a header, a results table and one
// detail section per scenario that did not pass cleanly.
func Summary(run *models.RunRecord) string {
	var b strings.Builder

	status := "PASSED"
	if !run.Succeeded() {
		status = "FAILED"
	}

	fmt.Fprintf(&b, "# WebProbe run %s\n\n", run.ID)
	fmt.Fprintf(&b, "- **Status:** %s\n", status)
	if run.Frontend != "" {
		fmt.Fprintf(&b, "- **Frontend:** %s\n", run.Frontend)
	}
	fmt.Fprintf(&b, "- **Started:** %s\n", run.StartedAt.UTC().Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "- **Duration:** %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "- **Passed:** %d, **Partial:** %d, **Failed:** %d\n\n", run.Passed, run.Partial, run.Failed)

	if len(run.Results) == 0 {
		b.WriteString("No scenarios were run.\n")
		return b.String()
	}

	b.WriteString("| Scenario | Outcome | Account | Final URL | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range run.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			cell(r.Scenario),
			strings.ToUpper(string(r.Outcome)),
			cell(r.Account),
			cell(r.FinalURL),
			r.Duration.Round(time.Millisecond))
	}

	for _, r := range run.Results {
		if r.Outcome == models.OutcomePass {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", r.Scenario)
		if r.ErrorKind != models.ErrorKindNone {
			fmt.Fprintf(&b, "- **Kind:** %s\n", r.ErrorKind)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "- **Error:** %s\n", oneLine(r.Error))
		}
		if r.Title != "" {
			fmt.Fprintf(&b, "- **Title:** %s\n", oneLine(r.Title))
		}
		if len(r.Found) > 0 {
			fmt.Fprintf(&b, "- **Found:** %s\n", strings.Join(r.Found, ", "))
		}
		if len(r.Missing) > 0 {
			fmt.Fprintf(&b, "- **Missing:** %s\n", strings.Join(r.Missing, ", "))
		}
		if len(r.Violations) > 0 {
			fmt.Fprintf(&b, "- **Unexpected:** %s\n", strings.Join(r.Violations, ", "))
		}
		if len(r.Console) > 0 {
			fmt.Fprintf(&b, "- **Console:** %s\n", oneLine(strings.Join(r.Console, "; ")))
		}
		if r.ArtifactsDir != "" {
			fmt.Fprintf(&b, "- **Artifacts:** %s\n", r.ArtifactsDir)
		}
		if r.Excerpt != "" {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", oracle.Truncate(r.Excerpt, 1000))
		}
	}

	return b.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func fallbackText(html string) string {
	return oracle.BodyText(html)
}
