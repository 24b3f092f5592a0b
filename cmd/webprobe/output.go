package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ternarybob/webprobe/internal/models"
)

func printScenarios(w io.Writer, scenarios []models.Scenario) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROVISION\tSTEPS\tSOURCE\tDESCRIPTION")
	for _, sc := range scenarios {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%s\t%s\n", sc.Name, sc.Provision, len(sc.Steps), sc.Source, sc.Description)
	}
	tw.Flush()
}

// printAccounts lists provisioned accounts so they can be removed by hand
func printAccounts(w io.Writer, accounts []*models.AccountRecord) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No provisioned accounts recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tUSERNAME\tEMAIL\tSCENARIO\tRUN")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.CreatedAt.Format(time.RFC3339), a.Username, a.Email, a.Scenario, a.RunID)
	}
	tw.Flush()
}

func printRuns(w io.Writer, runs []*models.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tID\tPASSED\tPARTIAL\tFAILED\tREPORT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.StartedAt.Format(time.RFC3339), r.ID, r.Passed, r.Partial, r.Failed, r.ReportDir)
	}
	tw.Flush()
}

func printResults(w io.Writer, run models.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tOUTCOME\tDURATION\tDETAIL")
	for _, r := range run.Results {
		detail := r.Error
		if detail == "" {
			detail = r.FinalURL
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Scenario, strings.ToUpper(string(r.Outcome)), r.Duration.Round(time.Millisecond), detail)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d passed, %d partial, %d failed", run.Passed, run.Partial, run.Failed)
	if run.ReportDir != "" {
		fmt.Fprintf(w, " (report: %s)", run.ReportDir)
	}
	fmt.Fprintln(w)
}

// printRunDetail shows one ledger run with the failure details of each scenario
func printRunDetail(w io.Writer, run *models.RunRecord) {
	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Frontend: %s\n", run.Frontend)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))

	printResults(w, *run)

	for _, r := range run.Results {
		if !r.Failed() {
			continue
		}
		fmt.Fprintf(w, "\n%s (%s)\n", r.Scenario, r.ErrorKind)
		if r.FinalURL != "" {
			fmt.Fprintf(w, "  url:     %s\n", r.FinalURL)
		}
		if len(r.Missing) > 0 {
			fmt.Fprintf(w, "  missing: %s\n", strings.Join(r.Missing, ", "))
		}
		for _, c := range r.Console {
			fmt.Fprintf(w, "  console: %s\n", c)
		}
		if r.ArtifactsDir != "" {
			fmt.Fprintf(w, "  files:   %s\n", r.ArtifactsDir)
		}
	}
}
