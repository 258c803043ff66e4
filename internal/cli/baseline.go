package cli

import (
	"fmt"
	"os"

	"github.com/modguard/modguard/internal/baseline"
	"github.com/modguard/modguard/internal/checker"
	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/observability/logging"
	"github.com/modguard/modguard/internal/observability/receipt"
	"github.com/spf13/cobra"
)

// baselineCmd manages the known-violations suppression set
var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage the baseline of known violations",
}

var baselineCreateCmd = &cobra.Command{
	Use:   "create --scan <dir>",
	Short: "Record current violations as accepted debt",
	Long: `Runs a full check and records every violation as a baseline entry.
Subsequent checks with --baseline suppress these; only new violations
fail the run.

Examples:
  modguard baseline create --scan out/scans
  modguard baseline create --scan out/scans -o debt.json`,
	RunE:         runBaselineCreate,
	SilenceUsage: true,
}

var baselinePruneCmd = &cobra.Command{
	Use:   "prune --scan <dir>",
	Short: "Drop baseline entries no current violation produces",
	Long: `Re-runs the check and removes entries for violations that have been
fixed, so the baseline only ever shrinks toward zero.`,
	RunE:         runBaselinePrune,
	SilenceUsage: true,
}

var (
	baselinePolicyFlag  string
	baselinePresetFlag  string
	baselineScanDirFlag string
	baselineOutputFlag  string
	baselineWorkersFlag int
)

func init() {
	for _, c := range []*cobra.Command{baselineCreateCmd, baselinePruneCmd} {
		c.Flags().StringVar(&baselinePolicyFlag, "policy", defaultPolicyPath, "Path to policy file")
		c.Flags().StringVar(&baselinePresetFlag, "preset", "", "Built-in preset to merge: baseline or strict")
		c.Flags().StringVar(&baselineScanDirFlag, "scan", "", "Directory of scanner output documents (*.json)")
		c.Flags().StringVarP(&baselineOutputFlag, "output", "o", defaultBaselinePath, "Baseline file path")
		c.Flags().IntVar(&baselineWorkersFlag, "workers", 1, "Parallel evaluation workers")
	}

	baselineCmd.AddCommand(baselineCreateCmd)
	baselineCmd.AddCommand(baselinePruneCmd)
}

// GetBaselineCmd export
func GetBaselineCmd() *cobra.Command {
	return baselineCmd
}

func runBaselineCreate(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "modguard baseline create", os.Args[1:])
	var receiptOpts []receipt.Option
	defer func() {
		receiptOpts = append(receiptOpts, receipt.WithPolicy(baselinePolicyFlag, baselinePresetFlag))
		_ = sess.Finish(err, receiptOpts...)
	}()

	policy, result, err := runBaselineCheck(cmd, args)
	if err != nil {
		return err
	}

	b := baseline.Build(policy.Name, result.Violations)
	mgr := baseline.NewManager()
	if err = mgr.Save(b, baselineOutputFlag); err != nil {
		return err
	}
	receiptOpts = append(receiptOpts, receipt.WithBaseline(baselineOutputFlag, len(b.Entries)))

	logging.From(ctx).Event(ctx, "baseline.create", map[string]any{
		"entries": len(b.Entries),
		"path":    baselineOutputFlag,
	})

	fmt.Printf("%s✓ baseline written to %s%s (%d entries)\n",
		colorGreen, baselineOutputFlag, colorReset, len(b.Entries))
	return nil
}

func runBaselinePrune(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "modguard baseline prune", os.Args[1:])
	var receiptOpts []receipt.Option
	defer func() {
		receiptOpts = append(receiptOpts, receipt.WithPolicy(baselinePolicyFlag, baselinePresetFlag))
		_ = sess.Finish(err, receiptOpts...)
	}()

	mgr := baseline.NewManager()
	if !mgr.Exists(baselineOutputFlag) {
		return fmt.Errorf("baseline not found: %s (run 'modguard baseline create' first)", baselineOutputFlag)
	}
	old, err := mgr.Load(baselineOutputFlag)
	if err != nil {
		return err
	}

	_, result, err := runBaselineCheck(cmd, args)
	if err != nil {
		return err
	}

	stale := baseline.Stale(old, result.Violations)
	for _, fp := range stale {
		delete(old.Entries, fp)
	}

	if err = mgr.Save(old, baselineOutputFlag); err != nil {
		return err
	}
	receiptOpts = append(receiptOpts, receipt.WithBaseline(baselineOutputFlag, len(old.Entries)))

	fmt.Printf("%s✓ pruned %d stale entries%s (%d remain)\n",
		colorGreen, len(stale), colorReset, len(old.Entries))
	return nil
}

// runBaselineCheck runs the shared load-and-check pipeline for the
// baseline subcommands.
func runBaselineCheck(cmd *cobra.Command, args []string) (*models.Policy, *checker.Result, error) {
	if baselineScanDirFlag == "" && len(args) == 0 {
		return nil, nil, fmt.Errorf("no scanner output provided. Usage: modguard baseline create --scan <dir>")
	}

	policy, err := loadPolicyWithPreset(baselinePolicyFlag, baselinePresetFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load policy: %w", err)
	}

	merged, err := loadMergedScan(baselineScanDirFlag, args)
	if err != nil {
		return nil, nil, err
	}

	chk, err := checker.New(policy, checker.Options{Workers: baselineWorkersFlag})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build checker: %w", err)
	}

	result, err := chk.Check(cmd.Context(), merged)
	if err != nil {
		return nil, nil, err
	}
	return policy, result, nil
}
