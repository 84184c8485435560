package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"polymigrate/internal/migration/model"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

var (
	labelColor = color.New(color.FgCyan)
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
	failColor  = color.New(color.FgRed, color.Bold)
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func field(w io.Writer, label string, value interface{}) {
	labelColor.Fprintf(w, "%-16s", label)
	fmt.Fprintln(w, value)
}

func printMigrationReport(cmd *cli.Command, r *model.MigrationReport) error {
	if cmd.Bool("json") {
		return printJSON(os.Stdout, r)
	}
	w := os.Stdout
	if r.State == model.StateCommitted {
		okColor.Fprintf(w, "migration %s committed\n", r.ExternalRef)
	} else {
		failColor.Fprintf(w, "migration %s %s\n", r.ExternalRef, r.State)
	}
	field(w, "run", r.RunID)
	if r.ProblemID != 0 {
		field(w, "problem id", r.ProblemID)
	}
	if r.ProblemUpserted {
		field(w, "tags", r.Tags)
	}
	if r.TestCaseTotal > 0 {
		field(w, "test cases", fmt.Sprintf("%d total, %d uploaded (cache hit: %t)", r.TestCaseTotal, r.Uploaded, r.CacheHit))
	}
	if len(r.Skipped) > 0 {
		warnColor.Fprintf(w, "%-16s%v\n", "skipped", r.Skipped)
	}
	if len(r.FetchFailed) > 0 {
		warnColor.Fprintf(w, "%-16s%v\n", "fetch failed", r.FetchFailed)
	}
	if r.Checker != nil {
		field(w, "checker", fmt.Sprintf("%s (%s)", r.Checker.Path, r.Checker.Kind))
	}
	if r.SampleRows > 0 || r.TestRows > 0 {
		field(w, "rows", fmt.Sprintf("%d samples, %d tests", r.SampleRows, r.TestRows))
	}
	if r.StaleRows > 0 {
		warnColor.Fprintf(w, "%-16s%d rows beyond the migrated range were kept\n", "stale", r.StaleRows)
	}
	field(w, "duration", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	return nil
}

func printPreview(cmd *cli.Command, p *model.PreviewReport) error {
	if cmd.Bool("json") {
		return printJSON(os.Stdout, p)
	}
	w := os.Stdout
	okColor.Fprintf(w, "problem %s\n", p.ExternalRef)
	field(w, "time limit", fmt.Sprintf("%d ms", p.Info.TimeLimitOrDefault()))
	field(w, "memory limit", fmt.Sprintf("%d MB", p.Info.MemoryLimitOrDefault()))
	field(w, "interactive", p.Info.Interactive)
	field(w, "checker", fmt.Sprintf("%s (%s)", p.Checker, p.CheckerType))
	if p.MainSolution != "" {
		field(w, "main solution", p.MainSolution)
	}
	field(w, "tests", fmt.Sprintf("%d (%d samples, cache hit: %t)", p.TestCount, p.SampleCount, p.CacheHit))
	if len(p.FetchFailed) > 0 {
		warnColor.Fprintf(w, "%-16s%v\n", "fetch failed", p.FetchFailed)
	}
	return nil
}
