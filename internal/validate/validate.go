// Package validate implements spec.md §4.H: the glue between the scanner,
// the matcher, and the detector. Validator.CheckQuery is the single entry
// point the proxy calls for every query packet observed on the client side;
// UpdateGoodQuery/UpdateBadQuery feed the server's eventual response back
// into the matcher.
//
// Grounded 1:1 on original_source/src/validator.rs's SqlValidator, adapted
// to spec.md §4.H's more detailed flow (match_prefix/match_suffix run
// unconditionally rather than only inside is_malicious_query, and the rule
// set is chosen by which side matched rather than always using one fixed
// Parameters value).
package validate

import (
	"errors"

	"github.com/mickamy/sqlfortify/internal/detect"
	"github.com/mickamy/sqlfortify/internal/match"
	"github.com/mickamy/sqlfortify/internal/scan"
)

// ErrVulnerablePrefix is returned when the query's prefix was previously
// marked as the site of a detected injection attempt (spec.md §8 S3).
var ErrVulnerablePrefix = errors.New("sqlfortify: vulnerable prefix detected")

// ErrMaliciousPattern is returned when the detector classifies the query as
// an injection attempt (spec.md §8 S2).
var ErrMaliciousPattern = errors.New("sqlfortify: query matched a malicious pattern")

// Validator owns one Matcher and answers check_query/update_good_query/
// update_bad_query for the query streams of every proxy connection. Its
// Matcher is shared across the whole proxy's lifetime, not per-connection —
// see cmd/sqlfortifyd, which constructs one Validator for the process.
type Validator struct {
	matcher *match.Matcher
}

// New returns a Validator backed by a fresh, empty Matcher.
func New() *Validator {
	return &Validator{matcher: match.New()}
}

// CheckQuery implements spec.md §4.H steps 1-6: tokenize, check for an exact
// match against a learned pattern, check for a vulnerable prefix, and
// otherwise run the detector against whichever rule set fits how much of a
// learned pattern the query matched.
//
// A nil error means the query should be forwarded to the backend; the
// caller is responsible for calling UpdateGoodQuery/UpdateBadQuery once the
// backend's response is known (update_pattern is deliberately deferred
// until then, per spec.md §4.H step 6).
func (v *Validator) CheckQuery(query string) error {
	forward := scan.Forward(query)

	if v.matcher.IsExactMatch(forward) {
		return nil
	}

	prefix := v.matcher.MatchPrefix(forward)
	if prefix != nil && prefix.HasVulnPrefix {
		return ErrVulnerablePrefix
	}

	var suffix *match.NodeInfo
	if prefix != nil && !prefix.IsExactMatch {
		suffix = v.matcher.MatchSuffix(scan.Reverse(query), prefix)
	}

	params := ruleSetFor(prefix, suffix)
	if detect.IsMalicious(forward, params) {
		var prefixID *match.NodeID
		if prefix != nil {
			id := prefix.ID()
			prefixID = &id
		}
		v.matcher.MarkVuln(forward, prefixID)
		return ErrMaliciousPattern
	}

	return nil
}

// ruleSetFor picks the detector parameters named in spec.md §4.G based on
// which side(s) of a learned pattern the query matched: both sides is
// strictest, prefix-only is the NULL-byte-injection-aware middle ground,
// neither side relaxes every rule since there is nothing learned to compare
// against.
func ruleSetFor(prefix, suffix *match.NodeInfo) detect.Parameters {
	switch {
	case prefix != nil && suffix != nil:
		return detect.DefaultPrefixSuffix()
	case prefix != nil:
		return detect.DefaultPrefix()
	default:
		return detect.DefaultNoPattern()
	}
}

// UpdateGoodQuery is called once the backend confirms a query executed
// successfully: it learns the query's shape so future queries of the same
// shape are recognized.
func (v *Validator) UpdateGoodQuery(query string) {
	v.matcher.UpdatePattern(scan.Forward(query))
}

// UpdateBadQuery is called when the backend rejects a query with an error.
// The validator's positive verdict on this query was advisory (spec.md §7);
// a server-side rejection marks the query's parameter slot vulnerable so no
// new sibling pattern is learned at that slot, per spec.md §4.H.
func (v *Validator) UpdateBadQuery(query string) {
	forward := scan.Forward(query)

	prefix := v.matcher.MatchPrefix(forward)
	var prefixID *match.NodeID
	if prefix != nil && !prefix.IsExactMatch {
		id := prefix.ID()
		prefixID = &id
	}
	v.matcher.MarkVuln(forward, prefixID)
}
