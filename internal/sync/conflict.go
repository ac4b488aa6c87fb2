package sync

// Strategy controls per-file conflict handling in the ad-hoc fetch flow.
type Strategy string

const (
	// StrategyOverwrite always replaces an existing file. The default.
	StrategyOverwrite Strategy = "overwrite"
	// StrategySkip never replaces an existing file; the file is recorded
	// as skipped in the summary.
	StrategySkip Strategy = "skip"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyOverwrite || s == StrategySkip
}

// decision is the outcome of the declarative-flow conflict policy for one
// skill candidate.
type decision int

const (
	decideFetch decision = iota
	decideSkipLocal
	decideSkipEarlierSource
)

// skillResolver applies the declarative precedence rules: a local skill
// always wins over any remote candidate, and between remote sources the
// first-declared one wins.
type skillResolver struct {
	// local is the set of skill names present outside the curated area.
	local map[string]bool
	// fetched maps skill names already produced in this run to the source
	// that produced them.
	fetched map[string]string
}

func newSkillResolver(localNames []string) *skillResolver {
	local := make(map[string]bool, len(localNames))
	for _, n := range localNames {
		local[n] = true
	}
	return &skillResolver{local: local, fetched: map[string]string{}}
}

// decide returns the policy outcome for a candidate skill name. It does not
// record anything; the caller commits fetched names via markFetched after
// the owning source completes.
func (r *skillResolver) decide(name string) (decision, string) {
	if r.local[name] {
		return decideSkipLocal, ""
	}
	if src, ok := r.fetched[name]; ok {
		return decideSkipEarlierSource, src
	}
	return decideFetch, ""
}

// markFetched records names as produced by sourceKey. Called once per
// source, after its processing fully completes, so precedence decisions
// never interleave with in-flight fetches.
func (r *skillResolver) markFetched(sourceKey string, names []string) {
	for _, n := range names {
		r.fetched[n] = sourceKey
	}
}
