// Command adjudex runs the quality-verdict core against a local report
// store: score artifacts, inspect reports, record review decisions, and diff
// versions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/adjudex/adjudex/pkg/contracts"
	"github.com/adjudex/adjudex/pkg/engine"
	"github.com/adjudex/adjudex/pkg/notify"
	"github.com/adjudex/adjudex/pkg/policy"
	"github.com/adjudex/adjudex/pkg/store"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "score":
		return runScore(args[2:], stdout, stderr)
	case "report":
		return runReport(args[2:], stdout, stderr)
	case "review":
		return runReview(args[2:], stdout, stderr)
	case "diff":
		return runDiff(args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage:
  adjudex score  <case> <artifact.json>
  adjudex report <case> <artifact-id>
  adjudex review <case> <report-id> approve|reject --reviewer <id>
  adjudex diff   <case> <artifact-id> <v1> <v2>`)
}

func buildEngine(stderr io.Writer) (*engine.Engine, func(), error) {
	cfg := policy.LoadConfig()

	profile := policy.Default()
	if cfg.ProfilesDir != "" {
		loaded, err := policy.LoadProfile(cfg.ProfilesDir, cfg.Profile)
		if err != nil {
			return nil, nil, err
		}
		profile = loaded
	}

	reports, err := store.OpenSQLite(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(profile, reports)
	if err != nil {
		_ = reports.Close()
		return nil, nil, err
	}
	if cfg.RedisAddr != "" {
		eng.WithNotifier(notify.NewRedisNotifier(cfg.RedisAddr))
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, nil)))
	return eng, func() { _ = reports.Close() }, nil
}

func runScore(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}
	caseUID, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stderr, "read artifact:", err)
		return 1
	}
	var artifact contracts.UpstreamArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		fmt.Fprintln(stderr, "parse artifact:", err)
		return 1
	}

	eng, cleanup, err := buildEngine(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer cleanup()

	report, err := eng.ScoreJudgment(context.Background(), caseUID, &artifact)
	if err != nil {
		fmt.Fprintln(stderr, "score:", err)
		return 1
	}
	return printJSON(stdout, stderr, report)
}

func runReport(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	eng, cleanup, err := buildEngine(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer cleanup()

	report, err := eng.GetQualityReport(context.Background(), args[0], args[1])
	if err != nil {
		fmt.Fprintln(stderr, "report:", err)
		return 1
	}
	return printJSON(stdout, stderr, report)
}

func runReview(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	fs.SetOutput(stderr)
	reviewer := fs.String("reviewer", "", "reviewer identity (required)")

	if len(args) < 3 {
		usage(stderr)
		return 2
	}
	caseUID, reportID, verb := args[0], args[1], args[2]
	if err := fs.Parse(args[3:]); err != nil {
		return 2
	}
	if *reviewer == "" {
		fmt.Fprintln(stderr, "review: --reviewer is required")
		return 2
	}

	var outcome contracts.ReviewOutcome
	switch verb {
	case "approve":
		outcome = contracts.OutcomeApprove
	case "reject":
		outcome = contracts.OutcomeReject
	default:
		usage(stderr)
		return 2
	}

	eng, cleanup, err := buildEngine(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer cleanup()

	report, err := eng.SubmitReviewDecision(context.Background(), caseUID, reportID, outcome, *reviewer)
	if err != nil {
		fmt.Fprintln(stderr, "review:", err)
		return 1
	}
	return printJSON(stdout, stderr, report)
}

func runDiff(args []string, stdout, stderr io.Writer) int {
	if len(args) < 4 {
		usage(stderr)
		return 2
	}
	v1, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Fprintln(stderr, "diff: bad version:", args[2])
		return 2
	}
	v2, err := strconv.Atoi(args[3])
	if err != nil {
		fmt.Fprintln(stderr, "diff: bad version:", args[3])
		return 2
	}

	eng, cleanup, err := buildEngine(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer cleanup()

	delta, err := eng.CompareVersions(context.Background(), args[0], args[1], v1, v2)
	if err != nil {
		fmt.Fprintln(stderr, "diff:", err)
		return 1
	}
	return printJSON(stdout, stderr, delta)
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(stderr, "encode:", err)
		return 1
	}
	return 0
}
