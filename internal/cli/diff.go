package cli

import (
	"fmt"
	"os"

	"github.com/modguard/modguard/internal/differ"
	"github.com/modguard/modguard/internal/observability/receipt"
	"github.com/spf13/cobra"
)

// diffCmd compares two check reports
var diffCmd = &cobra.Command{
	Use:   "diff <old-report.json> <new-report.json>",
	Short: "Compare two check reports",
	Long: `Compares two archived check reports and lists violations that appeared
or were resolved between them. A violation that merely moved position in
the report is not a change.

Exits non-zero when the newer report introduces violations, so CI can
gate on regressions instead of absolute counts.`,
	Args:         cobra.ExactArgs(2),
	RunE:         runDiff,
	SilenceUsage: true,
}

// GetDiffCmd export
func GetDiffCmd() *cobra.Command {
	return diffCmd
}

func runDiff(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "modguard diff", os.Args[1:])
	defer func() {
		_ = sess.Finish(err)
	}()

	result, err := differ.NewEngine().ComputeDiff(args[0], args[1])
	if err != nil {
		return err
	}

	if !result.HasChanges {
		fmt.Printf("%s✓ no changes between reports%s\n", colorGreen, colorReset)
		return nil
	}

	if len(result.Added) > 0 {
		fmt.Printf("%sNEW VIOLATIONS (%d)%s\n", colorRed, len(result.Added), colorReset)
		for _, d := range result.Added {
			fmt.Printf("%s+ %s: [%s] %s%s\n", colorRed, d.Violation.File, d.Violation.Type, d.Violation.Message, colorReset)
		}
		fmt.Println()
	}

	if len(result.Removed) > 0 {
		fmt.Printf("%sRESOLVED (%d)%s\n", colorGreen, len(result.Removed), colorReset)
		for _, d := range result.Removed {
			fmt.Printf("%s- %s: [%s] %s%s\n", colorGreen, d.Violation.File, d.Violation.Type, d.Violation.Message, colorReset)
		}
		fmt.Println()
	}

	if len(result.Translations) > 0 {
		fmt.Println("RUN CHANGES")
		for _, tr := range result.Translations {
			switch differ.GetSeverity(tr) {
			case differ.SeverityCritical:
				fmt.Printf("%s- %s%s\n", colorRed, tr, colorReset)
			case differ.SeveritySafe:
				fmt.Printf("%s- %s%s\n", colorGreen, tr, colorReset)
			default:
				fmt.Printf("%s- %s%s\n", colorYellow, tr, colorReset)
			}
		}
	}

	if len(result.Added) > 0 {
		return fmt.Errorf("%d new violation(s) introduced", len(result.Added))
	}
	return nil
}
