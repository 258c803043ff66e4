// Package ownership maps file paths to their owning module by testing each
// module's ownership globs. A path outside every module's globs is
// ungoverned, which is a valid outcome, not an error.
package ownership

import (
	"fmt"

	"github.com/modguard/modguard/internal/models"
	"github.com/modguard/modguard/internal/pattern"
)

// Owner is the result of an ownership lookup.
type Owner struct {
	Module      string
	Pattern     string
	Specificity int
	// Ambiguous is set when another module's glob matched with equal
	// specificity. Evaluation keeps the first-declared module, but the
	// collision is a policy authoring error worth surfacing.
	Ambiguous  bool
	Contenders []string
}

// Warning describes an equal-specificity ownership collision.
type Warning struct {
	Path    string
	Modules []string
}

func (w Warning) String() string {
	return fmt.Sprintf("ambiguous ownership of %s: modules %v claim it with equal specificity (first declared wins)", w.Path, w.Modules)
}

// Index resolves path ownership over one policy snapshot. Patterns are
// compiled once at construction; lookups are read-only and safe for
// concurrent use.
type Index struct {
	policy  *models.Policy
	matcher *pattern.Matcher
}

// NewIndex over a loaded policy. Pre-warms the pattern cache so per-file
// loops never pay compilation cost.
func NewIndex(policy *models.Policy, matcher *pattern.Matcher) *Index {
	ix := &Index{policy: policy, matcher: matcher}
	for _, id := range policy.ModuleOrder {
		for _, glob := range policy.Modules[id].OwnsPaths {
			matcher.Match(glob, "")
		}
	}
	return ix
}

// OwnerOf returns the owning module for a path, or false when the path is
// ungoverned.
func (ix *Index) OwnerOf(path string) (string, bool) {
	owner, ok := ix.Lookup(path)
	if !ok {
		return "", false
	}
	return owner.Module, true
}

// Lookup returns full ownership detail. Ties on the longest matching
// literal prefix are broken by declaration order and flagged ambiguous.
func (ix *Index) Lookup(path string) (Owner, bool) {
	best := Owner{Specificity: -1}
	found := false

	for _, id := range ix.policy.ModuleOrder {
		mod := ix.policy.Modules[id]
		for _, glob := range mod.OwnsPaths {
			if !ix.matcher.Match(glob, path) {
				continue
			}
			spec := len(ix.matcher.LiteralPrefix(glob))
			switch {
			case !found || spec > best.Specificity:
				best = Owner{Module: id, Pattern: glob, Specificity: spec}
				found = true
			case spec == best.Specificity && id != best.Module:
				best.Ambiguous = true
				if len(best.Contenders) == 0 {
					best.Contenders = append(best.Contenders, best.Module)
				}
				best.Contenders = appendUnique(best.Contenders, id)
			}
		}
	}

	return best, found
}

// AmbiguityWarning converts an ambiguous lookup into a surfaceable warning.
func AmbiguityWarning(path string, owner Owner) *Warning {
	if !owner.Ambiguous {
		return nil
	}
	return &Warning{Path: path, Modules: owner.Contenders}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
