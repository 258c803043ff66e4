package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/modguard/modguard/internal/baseline"
	"github.com/modguard/modguard/internal/checker"
	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/observability"
	"github.com/modguard/modguard/internal/observability/logging"
	otelobs "github.com/modguard/modguard/internal/observability/otel"
	"github.com/modguard/modguard/internal/observability/receipt"
	"github.com/modguard/modguard/internal/report"
	"github.com/modguard/modguard/internal/scan"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// checkCmd evaluates scanner output against the policy
var checkCmd = &cobra.Command{
	Use:   "check --scan <dir> [scan.json ...]",
	Short: "Check scanner output against the module policy",
	Long: `Loads scanner documents, merges them into one corpus, and evaluates
every file against the module policy. Fails when any violation is found
that the baseline does not suppress.

Examples:
  # Check all scan documents in a directory
  modguard check --scan out/scans

  # Check explicit documents with a preset merged in
  modguard check --preset=strict ts-scan.json py-scan.json

  # Suppress known debt and archive the report
  modguard check --scan out/scans --baseline modguard-baseline.json --output report.json

  # Get JSON output for CI
  modguard check --scan out/scans --format=json`,
	RunE:         runCheck,
	SilenceUsage: true,
}

var (
	checkPolicyFlag   string
	checkPresetFlag   string
	checkScanDirFlag  string
	checkBaselineFlag string
	checkFormatFlag   string
	checkOutputFlag   string
	checkWorkersFlag  int
)

func init() {
	checkCmd.Flags().StringVar(&checkPolicyFlag, "policy", defaultPolicyPath, "Path to policy file")
	checkCmd.Flags().StringVar(&checkPresetFlag, "preset", "", "Built-in preset to merge: baseline or strict")
	checkCmd.Flags().StringVar(&checkScanDirFlag, "scan", "", "Directory of scanner output documents (*.json)")
	checkCmd.Flags().StringVar(&checkBaselineFlag, "baseline", "", "Baseline file suppressing known violations")
	checkCmd.Flags().StringVar(&checkFormatFlag, "format", "text", "Output format: text or json")
	checkCmd.Flags().StringVarP(&checkOutputFlag, "output", "o", "", "Write the full report JSON to this path")
	checkCmd.Flags().IntVar(&checkWorkersFlag, "workers", 1, "Parallel evaluation workers (output is identical at any setting)")
}

// GetCheckCmd export
func GetCheckCmd() *cobra.Command {
	return checkCmd
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "modguard check", os.Args[1:])
	var receiptOpts []receipt.Option

	defer func() {
		receiptOpts = append(receiptOpts, receipt.WithPolicy(checkPolicyFlag, checkPresetFlag))
		_ = sess.Finish(err, receiptOpts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	// Start OTel span if enabled
	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "modguard.check",
			trace.WithAttributes(
				attribute.String("modguard.op_id", observability.OpID(ctx)),
				attribute.String("modguard.command", "check"),
				attribute.String("modguard.policy", checkPolicyFlag),
			))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed")
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			span.End()
		}()
	}

	log.Event(ctx, "check.start", nil)

	var resultStatus string
	defer func() {
		log.Event(ctx, "check.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	if checkFormatFlag != "text" && checkFormatFlag != "json" {
		resultStatus = "fail"
		return fmt.Errorf("invalid format: %s (use text or json)", checkFormatFlag)
	}
	if checkScanDirFlag == "" && len(args) == 0 {
		resultStatus = "fail"
		return fmt.Errorf("no scanner output provided. Usage: modguard check --scan <dir> or modguard check <scan.json ...>")
	}

	policy, loadErr := loadPolicyWithPreset(checkPolicyFlag, checkPresetFlag)
	if loadErr != nil {
		resultStatus = "fail"
		return fmt.Errorf("failed to load policy: %w", loadErr)
	}

	merged, loadErr := loadMergedScan(checkScanDirFlag, args)
	if loadErr != nil {
		resultStatus = "fail"
		return loadErr
	}

	chk, chkErr := checker.New(policy, checker.Options{Workers: checkWorkersFlag})
	if chkErr != nil {
		resultStatus = "fail"
		return fmt.Errorf("failed to build checker: %w", chkErr)
	}

	result, checkErr := chk.Check(ctx, merged)
	if checkErr != nil {
		resultStatus = "fail"
		return checkErr
	}

	// Apply baseline suppression
	violations := result.Violations
	var suppressed []models.Violation
	if checkBaselineFlag != "" {
		mgr := baseline.NewManager()
		b, blErr := mgr.Load(checkBaselineFlag)
		if blErr != nil {
			resultStatus = "fail"
			return fmt.Errorf("failed to load baseline: %w", blErr)
		}
		violations, suppressed = baseline.Filter(violations, b)
		receiptOpts = append(receiptOpts, receipt.WithBaseline(checkBaselineFlag, len(b.Entries)))
	}

	warnings := collectWarnings(result)
	receiptOpts = append(receiptOpts,
		receipt.WithCheck(result.FilesChecked, len(violations), len(suppressed), len(warnings)))

	if checkOutputFlag != "" {
		rep := report.New(policy.Name, merged.Sources, result.FilesChecked, violations)
		rep.Warnings = warnings
		rep.Suppressed = len(suppressed)
		if saveErr := report.Save(rep, checkOutputFlag); saveErr != nil {
			resultStatus = "fail"
			return saveErr
		}
	}

	checkReport := BuildCheckReport(
		policy.Name,
		merged.Sources,
		result.FilesChecked,
		violations,
		warnings,
		len(suppressed),
		checkBaselineFlag,
	)

	if checkFormatFlag == "json" {
		jsonOutput, jsonErr := FormatJSONOutput(checkReport)
		if jsonErr != nil {
			resultStatus = "fail"
			return fmt.Errorf("failed to format JSON output: %w", jsonErr)
		}
		fmt.Println(string(jsonOutput))
	} else {
		fmt.Print(FormatTextOutput(checkReport))
	}

	// Determine exit code - use os.Exit to avoid Cobra error messages corrupting JSON
	if checkReport.Outcome == "FAIL" {
		resultStatus = "fail"
		if checkFormatFlag == "json" {
			os.Exit(1)
		}
		return fmt.Errorf("policy check failed: %d violation(s) found", checkReport.Summary.Total)
	}

	resultStatus = "success"
	return nil
}

// loadMergedScan loads scanner documents from a directory, explicit
// paths, or both, and merges them in load order.
func loadMergedScan(dir string, paths []string) (*models.MergedScan, error) {
	var docs []*models.ScanDocument

	if dir != "" {
		dirDocs, err := scan.LoadDir(dir)
		if err != nil {
			return nil, err
		}
		docs = append(docs, dirDocs...)
	}
	for _, p := range paths {
		doc, err := scan.LoadDocument(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return scan.Merge(docs), nil
}

// collectWarnings flattens ambiguity and rule warnings into report order.
func collectWarnings(result *checker.Result) []string {
	var warnings []string
	for _, w := range result.AmbiguousPaths {
		warnings = append(warnings, w.String())
	}
	warnings = append(warnings, result.RuleWarnings...)
	return warnings
}
