// Package checker drives the full evaluation pipeline: ownership lookup,
// requirement checks, import-edge checks, and custom rules for every file
// in a merged scan, with a deterministic violation order.
package checker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/ownership"
	"github.com/modguard/modguard/internal/pattern"
	"github.com/modguard/modguard/internal/rules"
)

// Options tune a check run.
type Options struct {
	// Workers shards per-file evaluation across goroutines. Zero or one
	// means serial. Output order is identical either way.
	Workers int
}

// Result is the outcome of one check run.
type Result struct {
	Violations []models.Violation
	// AmbiguousPaths records equal-specificity ownership collisions.
	// These are policy authoring errors, surfaced but non-fatal.
	AmbiguousPaths []ownership.Warning
	// RuleWarnings collects failed custom rules with warn severity.
	RuleWarnings []string
	FilesChecked int
}

// Checker evaluates merged scans against one policy snapshot. Safe for
// concurrent use after construction.
type Checker struct {
	policy  *models.Policy
	matcher *pattern.Matcher
	index   *ownership.Index
	eval    *rules.Evaluator
	cel     *rules.CELEngine
	opts    Options
}

// New builds a checker over a loaded, validated policy. Custom rule
// expressions are compiled up front so a malformed policy fails here
// rather than mid-run.
func New(policy *models.Policy, opts Options) (*Checker, error) {
	matcher := pattern.NewMatcher()

	cel, err := rules.NewCELEngine()
	if err != nil {
		return nil, err
	}
	if err := cel.CompileAndValidate(policy); err != nil {
		return nil, err
	}

	return &Checker{
		policy:  policy,
		matcher: matcher,
		index:   ownership.NewIndex(policy, matcher),
		eval:    rules.NewEvaluator(matcher),
		cel:     cel,
		opts:    opts,
	}, nil
}

type fileResult struct {
	violations []models.Violation
	ambiguous  *ownership.Warning
	warnings   []string
}

// Check evaluates every file in scan order. Two runs over identical
// input produce byte-identical violation sequences: file order first,
// then a fixed rank per violation type within a file.
func (c *Checker) Check(ctx context.Context, scan *models.MergedScan) (*Result, error) {
	results := make([]fileResult, len(scan.Files))

	if c.opts.Workers > 1 {
		if err := c.checkParallel(ctx, scan.Files, results); err != nil {
			return nil, err
		}
	} else {
		for i := range scan.Files {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("check cancelled: %w", err)
			}
			results[i] = c.checkFile(&scan.Files[i])
		}
	}

	// Reassemble in file order regardless of which worker produced what.
	out := &Result{FilesChecked: len(scan.Files)}
	for _, fr := range results {
		out.Violations = append(out.Violations, fr.violations...)
		if fr.ambiguous != nil {
			out.AmbiguousPaths = append(out.AmbiguousPaths, *fr.ambiguous)
		}
		out.RuleWarnings = append(out.RuleWarnings, fr.warnings...)
	}
	return out, nil
}

func (c *Checker) checkParallel(ctx context.Context, files []models.ScanFile, results []fileResult) error {
	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < c.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = c.checkFile(&files[i])
			}
		}()
	}

	var err error
feed:
	for i := range files {
		select {
		case <-ctx.Done():
			err = fmt.Errorf("check cancelled: %w", ctx.Err())
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
	return err
}

func (c *Checker) checkFile(file *models.ScanFile) fileResult {
	var fr fileResult

	owner, governed := c.index.Lookup(file.Path)
	if !governed {
		// Ungoverned files produce nothing: no requirements apply and
		// their imports have no caller module.
		return fr
	}
	fr.ambiguous = ownership.AmbiguityWarning(file.Path, owner)

	ownerPolicy := c.policy.Modules[owner.Module]

	fr.violations = append(fr.violations,
		c.eval.EvaluateRequirements(file, owner.Module, ownerPolicy, c.policy.GlobalKillPatterns)...)

	var importOwners []string
	for _, imp := range file.Imports {
		target, ok := c.index.OwnerOf(imp.From)
		if !ok {
			continue
		}
		importOwners = append(importOwners, target)
		// Intra-module imports are never edges.
		if target == owner.Module {
			continue
		}
		if v := c.eval.EvaluateEdge(file.Path, owner.Module, target, c.policy.Modules[target]); v != nil {
			fr.violations = append(fr.violations, *v)
		}
	}

	if len(ownerPolicy.CustomRules) > 0 {
		input := rules.BuildFileInput(file, owner.Module, importOwners)
		for _, r := range c.cel.EvaluateRules(ownerPolicy.CustomRules, input) {
			if r.Passed {
				continue
			}
			if severityOf(ownerPolicy.CustomRules, r.RuleName) == "warn" {
				fr.warnings = append(fr.warnings,
					fmt.Sprintf("%s: rule %q: %s", file.Path, r.RuleName, r.FailureMsg))
				continue
			}
			fr.violations = append(fr.violations, models.Violation{
				File:    file.Path,
				Module:  owner.Module,
				Type:    models.ViolationCustomRule,
				Message: fmt.Sprintf("custom rule %q failed: %s", r.RuleName, r.FailureMsg),
			})
		}
	}

	// Canonical within-file order. Stable sort preserves import order
	// inside each violation type.
	sort.SliceStable(fr.violations, func(i, j int) bool {
		return fr.violations[i].Type.Rank() < fr.violations[j].Type.Rank()
	})

	return fr
}

func severityOf(ruleset []models.CustomRule, name string) string {
	for _, r := range ruleset {
		if r.Name == name {
			return r.Severity
		}
	}
	return ""
}
