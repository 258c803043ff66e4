// Package resolver maps raw module identifiers, as typed by humans or
// emitted by scanners, to the canonical identifiers the policy declares.
//
// The precedence chain is exact, alias, unique substring, edit distance,
// short-circuiting at the first success. Results are deterministic for a
// given policy/alias snapshot: candidate sets iterate in declaration
// order and every list in an error is sorted.
package resolver

import (
	"fmt"
	"sort"

	"github.com/agext/levenshtein"
	"github.com/modguard/modguard/internal/alias"
	"github.com/modguard/modguard/internal/models"
)

const (
	defaultMinSubstringLength  = 3
	defaultMaxAmbiguousMatches = 5

	substringConfidence = 0.9
	fuzzyDecayPerEdit   = 0.15
)

// Options toggle individual steps of the precedence chain. Strict forces
// exact-only resolution for CI paths where silent auto-correction is
// unacceptable. SoftFail turns "no match" into a zero-confidence result
// instead of a NoMatchFoundError; ambiguity is an error in both modes.
type Options struct {
	NoAlias             bool
	NoSubstring         bool
	NoFuzzy             bool
	Strict              bool
	SoftFail            bool
	MinSubstringLength  int
	MaxAmbiguousMatches int
}

func (o Options) withDefaults() Options {
	if o.MinSubstringLength <= 0 {
		o.MinSubstringLength = defaultMinSubstringLength
	}
	if o.MaxAmbiguousMatches <= 0 {
		o.MaxAmbiguousMatches = defaultMaxAmbiguousMatches
	}
	return o
}

// Resolver resolves identifiers against one policy snapshot. The alias
// cache is owned by the caller; Resolve never mutates it beyond the lazy
// first load.
type Resolver struct {
	policy  *models.Policy
	aliases *alias.Cache
}

// New resolver over a loaded policy. aliases may be nil.
func New(policy *models.Policy, aliases *alias.Cache) *Resolver {
	if aliases == nil {
		aliases = alias.NewCache("")
	}
	return &Resolver{policy: policy, aliases: aliases}
}

// Resolve maps input to a canonical module identifier.
func (r *Resolver) Resolve(input string, opts Options) (models.ResolutionResult, error) {
	opts = opts.withDefaults()

	// Exact match runs first and always: it is unambiguous and must not
	// be shadowed by alias or fuzzy logic.
	if _, ok := r.policy.Modules[input]; ok {
		return models.ResolutionResult{
			Original:   input,
			Canonical:  input,
			Confidence: 1.0,
			Source:     models.SourceExact,
		}, nil
	}

	if !opts.Strict && !opts.NoAlias {
		if res, ok, err := r.resolveAlias(input); err != nil {
			return models.ResolutionResult{}, err
		} else if ok {
			return res, nil
		}
	}

	if !opts.Strict && !opts.NoSubstring && len(input) >= opts.MinSubstringLength {
		res, ok, err := r.resolveSubstring(input, opts)
		if err != nil {
			return models.ResolutionResult{}, err
		}
		if ok {
			return res, nil
		}
	}

	if !opts.Strict && !opts.NoFuzzy {
		if res, ok := r.resolveFuzzy(input, opts); ok {
			return res, nil
		}
	}

	if opts.SoftFail {
		return models.ResolutionResult{
			Original:   input,
			Confidence: 0,
			Source:     models.SourceNone,
		}, nil
	}
	return models.ResolutionResult{}, &NoMatchFoundError{
		Input: input,
		Known: r.knownIDs(),
	}
}

func (r *Resolver) resolveAlias(input string) (models.ResolutionResult, bool, error) {
	table, err := r.aliases.Table()
	if err != nil {
		return models.ResolutionResult{}, false, err
	}

	entry, ok := table[input]
	if !ok {
		return models.ResolutionResult{}, false, nil
	}
	// A dangling alias target is a table authoring problem; fall through
	// to the later steps rather than resolving to a module the policy
	// does not know.
	if _, ok := r.policy.Modules[entry.Canonical]; !ok {
		return models.ResolutionResult{}, false, nil
	}

	return models.ResolutionResult{
		Original:   input,
		Canonical:  entry.Canonical,
		Confidence: entry.Confidence,
		Source:     models.SourceAlias,
	}, true, nil
}

func (r *Resolver) resolveSubstring(input string, opts Options) (models.ResolutionResult, bool, error) {
	var matches []string
	for _, id := range r.policy.ModuleOrder {
		if containsCaseSensitive(id, input) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return models.ResolutionResult{}, false, nil
	case 1:
		return models.ResolutionResult{
			Original:   input,
			Canonical:  matches[0],
			Confidence: substringConfidence,
			Source:     models.SourceSubstring,
			Warning:    fmt.Sprintf("expanded %q to %q", input, matches[0]),
		}, true, nil
	default:
		sort.Strings(matches)
		return models.ResolutionResult{}, false, &AmbiguousSubstringError{
			Input:   input,
			Matches: matches,
			Limit:   opts.MaxAmbiguousMatches,
		}
	}
}

func (r *Resolver) resolveFuzzy(input string, opts Options) (models.ResolutionResult, bool) {
	type candidate struct {
		key       string
		canonical string
		scale     float64 // alias entries carry their declared confidence
	}

	var candidates []candidate
	for _, id := range r.policy.ModuleOrder {
		candidates = append(candidates, candidate{key: id, canonical: id, scale: 1.0})
	}
	if !opts.NoAlias {
		if table, err := r.aliases.Table(); err == nil {
			keys := make([]string, 0, len(table))
			for k := range table {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				entry := table[k]
				if _, ok := r.policy.Modules[entry.Canonical]; ok {
					candidates = append(candidates, candidate{key: k, canonical: entry.Canonical, scale: entry.Confidence})
				}
			}
		}
	}

	threshold := fuzzyThreshold(len(input))
	best := -1
	bestDist := threshold + 1
	unique := false
	for i, c := range candidates {
		dist := levenshtein.Distance(input, c.key, nil)
		if dist < bestDist {
			bestDist = dist
			best = i
			unique = true
		} else if dist == bestDist && best >= 0 && candidates[best].canonical != c.canonical {
			// two distinct targets at equal distance: not strictly closer
			unique = false
		}
	}

	if best < 0 || !unique || bestDist > threshold {
		return models.ResolutionResult{}, false
	}

	chosen := candidates[best]
	confidence := (1.0 - fuzzyDecayPerEdit*float64(bestDist)) * chosen.scale
	if confidence < 0 {
		confidence = 0
	}
	return models.ResolutionResult{
		Original:     input,
		Canonical:    chosen.canonical,
		Confidence:   confidence,
		Source:       models.SourceFuzzy,
		Warning:      fmt.Sprintf("interpreting %q as %q (%d character(s) differ)", input, chosen.canonical, bestDist),
		EditDistance: bestDist,
	}, true
}

// fuzzyThreshold is the largest edit distance accepted for an input of
// the given length. Short identifiers tolerate only one edit.
func fuzzyThreshold(n int) int {
	switch {
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

func (r *Resolver) knownIDs() []string {
	ids := make([]string, len(r.policy.ModuleOrder))
	copy(ids, r.policy.ModuleOrder)
	sort.Strings(ids)
	return ids
}

// containsCaseSensitive is a plain byte-wise substring check; no locale
// dependent comparison is involved anywhere in resolution.
func containsCaseSensitive(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
