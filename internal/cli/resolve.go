package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/modguard/modguard/internal/alias"
	"github.com/modguard/modguard/internal/observability/receipt"
	"github.com/modguard/modguard/internal/resolver"
	"github.com/spf13/cobra"
)

// resolveCmd maps a raw identifier to its canonical module
var resolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Resolve a module identifier to its canonical form",
	Long: `Resolves a raw module identifier against the policy using the full
precedence chain: exact match, alias table, unique substring, then edit
distance. Use --strict to disable everything but exact matching.

Examples:
  # Typo correction
  modguard resolve servces/auth-core

  # Exact-only for CI paths
  modguard resolve --strict services/auth-core

  # Resolve through a team alias table
  modguard resolve --aliases team-aliases.yaml auth`,
	Args:         cobra.ExactArgs(1),
	RunE:         runResolve,
	SilenceUsage: true,
}

var (
	resolvePolicyFlag       string
	resolveAliasesFlag      string
	resolveStrictFlag       bool
	resolveNoAliasFlag      bool
	resolveNoSubstringFlag  bool
	resolveNoFuzzyFlag      bool
	resolveSoftFlag         bool
	resolveMinSubstringFlag int
	resolveMaxAmbiguousFlag int
)

func init() {
	resolveCmd.Flags().StringVar(&resolvePolicyFlag, "policy", defaultPolicyPath, "Path to policy file")
	resolveCmd.Flags().StringVar(&resolveAliasesFlag, "aliases", defaultAliasesPath, "Path to alias table (missing file is an empty table)")
	resolveCmd.Flags().BoolVar(&resolveStrictFlag, "strict", false, "Exact matching only")
	resolveCmd.Flags().BoolVar(&resolveNoAliasFlag, "no-alias", false, "Skip the alias table")
	resolveCmd.Flags().BoolVar(&resolveNoSubstringFlag, "no-substring", false, "Skip substring expansion")
	resolveCmd.Flags().BoolVar(&resolveNoFuzzyFlag, "no-fuzzy", false, "Skip edit-distance matching")
	resolveCmd.Flags().BoolVar(&resolveSoftFlag, "soft", false, "Report no-match as a zero-confidence result instead of an error")
	resolveCmd.Flags().IntVar(&resolveMinSubstringFlag, "min-substring-length", 0, "Minimum input length for substring expansion")
	resolveCmd.Flags().IntVar(&resolveMaxAmbiguousFlag, "max-ambiguous", 0, "Maximum candidates listed in ambiguity errors")
}

// GetResolveCmd export
func GetResolveCmd() *cobra.Command {
	return resolveCmd
}

func runResolve(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "modguard resolve", os.Args[1:])
	defer func() {
		_ = sess.Finish(err, receipt.WithPolicy(resolvePolicyFlag, ""))
	}()

	policy, err := loadPolicyWithPreset(resolvePolicyFlag, "")
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}

	r := resolver.New(policy, alias.NewCache(resolveAliasesFlag))
	result, err := r.Resolve(args[0], resolver.Options{
		Strict:              resolveStrictFlag,
		NoAlias:             resolveNoAliasFlag,
		NoSubstring:         resolveNoSubstringFlag,
		NoFuzzy:             resolveNoFuzzyFlag,
		SoftFail:            resolveSoftFlag,
		MinSubstringLength:  resolveMinSubstringFlag,
		MaxAmbiguousMatches: resolveMaxAmbiguousFlag,
	})
	if err != nil {
		var ambiguous *resolver.AmbiguousSubstringError
		if errors.As(err, &ambiguous) {
			fmt.Printf("%sambiguous: %q matches multiple modules%s\n", colorYellow, args[0], colorReset)
			shown := ambiguous.Matches
			if ambiguous.Limit > 0 && len(shown) > ambiguous.Limit {
				shown = shown[:ambiguous.Limit]
			}
			for _, m := range shown {
				fmt.Printf("  - %s\n", m)
			}
			if extra := len(ambiguous.Matches) - len(shown); extra > 0 {
				fmt.Printf("  ... and %d more\n", extra)
			}
		}
		return err
	}

	if result.Canonical == "" {
		fmt.Printf("%sno match for %q%s\n", colorYellow, result.Original, colorReset)
		return nil
	}

	fmt.Printf("%s%s%s\n", colorGreen, result.Canonical, colorReset)
	fmt.Printf("  source: %s, confidence: %.2f\n", result.Source, result.Confidence)
	if result.Warning != "" {
		fmt.Printf("  %s%s%s\n", colorYellow, result.Warning, colorReset)
	}
	return nil
}
