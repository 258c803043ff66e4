package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/modguard/modguard/internal/observability/receipt"
	"github.com/modguard/modguard/internal/policyfile"
	"github.com/modguard/modguard/internal/registry"
	"github.com/spf13/cobra"
)

// policyCmd groups policy management subcommands
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Validate, inspect, and distribute module policies",
}

var policyValidateCmd = &cobra.Command{
	Use:          "validate <policy.yaml>",
	Short:        "Validate a policy file without running a check",
	Args:         cobra.ExactArgs(1),
	RunE:         runPolicyValidate,
	SilenceUsage: true,
}

var policyExplainCmd = &cobra.Command{
	Use:          "explain <policy.yaml>",
	Short:        "Print a human-readable summary of a policy",
	Args:         cobra.ExactArgs(1),
	RunE:         runPolicyExplain,
	SilenceUsage: true,
}

var policyPullCmd = &cobra.Command{
	Use:   "pull <image-ref>",
	Short: "Pull a policy from an OCI registry, pinned by digest",
	Long: `Resolves the reference to its digest, pulls the policy image, and
extracts the policy document. The pinned reference is recorded in the
receipt so CI runs can prove exactly which policy revision gated them.

Examples:
  modguard policy pull ghcr.io/acme/policies/web:v2
  modguard policy pull ghcr.io/acme/policies/web@sha256:abc... -o modguard.yaml`,
	Args:         cobra.ExactArgs(1),
	RunE:         runPolicyPull,
	SilenceUsage: true,
}

var policyFetchCmd = &cobra.Command{
	Use:          "fetch <https-url>",
	Short:        "Fetch a policy over HTTPS",
	Args:         cobra.ExactArgs(1),
	RunE:         runPolicyFetch,
	SilenceUsage: true,
}

var (
	policyPullFileFlag    string
	policyPullOutputFlag  string
	policyFetchOutputFlag string
	policyFetchUnsafeFlag bool
)

func init() {
	policyPullCmd.Flags().StringVar(&policyPullFileFlag, "file", registry.DefaultPolicyFile, "Policy path inside the image")
	policyPullCmd.Flags().StringVarP(&policyPullOutputFlag, "output", "o", defaultPolicyPath, "Where to write the pulled policy")
	policyFetchCmd.Flags().StringVarP(&policyFetchOutputFlag, "output", "o", defaultPolicyPath, "Where to write the fetched policy")
	policyFetchCmd.Flags().BoolVar(&policyFetchUnsafeFlag, "unsafe-allow-private-policy-hosts", false, "Allow fetching from private or loopback hosts")

	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyExplainCmd)
	policyCmd.AddCommand(policyPullCmd)
	policyCmd.AddCommand(policyFetchCmd)
}

// GetPolicyCmd export
func GetPolicyCmd() *cobra.Command {
	return policyCmd
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	policy, err := policyfile.Load(args[0])
	if err != nil {
		fmt.Printf("%s✗ %s is not a valid policy%s\n", colorRed, args[0], colorReset)
		return err
	}

	fmt.Printf("%s✓ %s is valid%s (%d module(s))\n", colorGreen, args[0], colorReset, len(policy.Modules))
	return nil
}

func runPolicyExplain(cmd *cobra.Command, args []string) error {
	policy, err := policyfile.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Policy: %s\n\n", policy.Name)

	// Declaration order, as the evaluator sees it.
	for _, id := range policy.ModuleOrder {
		m := policy.Modules[id]
		fmt.Printf("%s%s%s\n", colorGreen, id, colorReset)
		if len(m.OwnsPaths) > 0 {
			fmt.Printf("  owns: %s\n", strings.Join(m.OwnsPaths, ", "))
		}
		if len(m.OwnsNamespaces) > 0 {
			fmt.Printf("  owns namespaces: %s\n", strings.Join(m.OwnsNamespaces, ", "))
		}
		if len(m.AllowedCallers) > 0 {
			fmt.Printf("  allowed callers: %s\n", strings.Join(m.AllowedCallers, ", "))
		}
		if len(m.ForbiddenCallers) > 0 {
			fmt.Printf("  %sforbidden callers: %s%s\n", colorRed, strings.Join(m.ForbiddenCallers, ", "), colorReset)
		}
		if len(m.FeatureFlags) > 0 {
			fmt.Printf("  required feature flags: %s\n", strings.Join(m.FeatureFlags, ", "))
		}
		if len(m.RequiresPermissions) > 0 {
			fmt.Printf("  required permissions: %s\n", strings.Join(m.RequiresPermissions, ", "))
		}
		for _, kp := range m.KillPatterns {
			fmt.Printf("  %skill pattern: %s%s\n", colorYellow, kp, colorReset)
		}
		for _, r := range m.CustomRules {
			sev := r.Severity
			if sev == "" {
				sev = "error"
			}
			fmt.Printf("  rule %q (%s): %s\n", r.Name, sev, r.Expr)
		}
	}

	if len(policy.GlobalKillPatterns) > 0 {
		fmt.Printf("\n%sglobal kill patterns%s\n", colorYellow, colorReset)
		patterns := make([]string, 0, len(policy.GlobalKillPatterns))
		for _, kp := range policy.GlobalKillPatterns {
			patterns = append(patterns, kp.Pattern)
		}
		sort.Strings(patterns)
		for _, p := range patterns {
			fmt.Printf("  - %s\n", p)
		}
	}

	return nil
}

func runPolicyPull(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "modguard policy pull", os.Args[1:])
	var receiptOpts []receipt.Option
	defer func() {
		_ = sess.Finish(err, receiptOpts...)
	}()

	result, err := registry.Pull(ctx, args[0], policyPullFileFlag)
	if err != nil {
		return err
	}
	receiptOpts = append(receiptOpts, receipt.WithRegistryPin(result.Ref, result.Digest))

	// Validate before writing: a broken policy should never land on disk.
	if _, err = policyfile.Parse(result.Data, result.Ref); err != nil {
		return fmt.Errorf("pulled policy is invalid: %w", err)
	}

	if err = os.WriteFile(policyPullOutputFlag, result.Data, 0644); err != nil {
		return fmt.Errorf("failed to write policy: %w", err)
	}
	receiptOpts = append(receiptOpts, receipt.WithPolicy(policyPullOutputFlag, ""))

	fmt.Printf("%s✓ pulled %s%s\n", colorGreen, result.Ref, colorReset)
	fmt.Printf("  written to %s\n", policyPullOutputFlag)
	return nil
}

func runPolicyFetch(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "modguard policy fetch", os.Args[1:])
	var receiptOpts []receipt.Option
	defer func() {
		_ = sess.Finish(err, receiptOpts...)
	}()

	config := registry.DefaultFetchConfig()
	config.AllowPrivateHosts = policyFetchUnsafeFlag

	result, err := registry.FetchPolicy(ctx, args[0], config)
	if err != nil {
		return err
	}

	if _, err = policyfile.Parse(result.Data, args[0]); err != nil {
		return fmt.Errorf("fetched policy is invalid: %w", err)
	}

	if err = os.WriteFile(policyFetchOutputFlag, result.Data, 0644); err != nil {
		return fmt.Errorf("failed to write policy: %w", err)
	}
	receiptOpts = append(receiptOpts, receipt.WithPolicy(policyFetchOutputFlag, ""))

	fmt.Printf("%s✓ fetched %s%s\n", colorGreen, args[0], colorReset)
	fmt.Printf("  sha256: %s\n", result.SHA256)
	fmt.Printf("  written to %s\n", policyFetchOutputFlag)
	return nil
}
