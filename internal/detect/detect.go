// Package detect implements the dialect-specific malicious-shape rules of
// spec.md §4.G: a configurable set of rules run over a single query's token
// stream, plus tautology detection for expressions following OR.
//
// Grounded 1:1 on original_source/src/cockroach_detector.rs and
// original_source/src/sql.rs (Parameters, MultipleQueries, Tautologies, the
// three default_* constructors, is_tautology). The package name echoes the
// teacher repo's own (unrelated) N+1 "detect" package name; the logic here
// is entirely distinct and ported from the Rust detector.
package detect

import (
	"strings"

	"github.com/mickamy/sqlfortify/internal/scan"
	"github.com/mickamy/sqlfortify/internal/token"
)

// MultipleQueries controls how a bare `;` token is treated.
type MultipleQueries int

const (
	// MultiDisallowAll treats any semicolon as malicious.
	MultiDisallowAll MultipleQueries = iota
	// MultiDisallowOnOtherIndications treats a semicolon as malicious only
	// if some other rule (tautology, time delay, block comment) also fires
	// for the same query.
	MultiDisallowOnOtherIndications
	// MultiDisallowCommit treats a semicolon as malicious only if a
	// COMMIT-family keyword also appears in the query.
	MultiDisallowCommit
	// MultiAllowAll never treats a semicolon as malicious on its own.
	MultiAllowAll
)

// Tautologies controls how an `OR <tautology>` expression is treated.
type Tautologies int

const (
	TautologyDisallowAll Tautologies = iota
	TautologyAllowWhereTrue
	TautologyDisallowCommon
	TautologyAllowAll
)

// sleepFunctions lists identifiers recognized as dialect time-delay
// functions. PG_SLEEP covers PostgreSQL/CockroachDB.
var sleepFunctions = map[string]bool{
	"PG_SLEEP": true,
}

// Parameters configures one run of IsMalicious.
type Parameters struct {
	DisallowBlockComments bool
	DisallowLineComments  bool
	DisallowTimeDelays    bool
	MultiQueries          MultipleQueries
	Tautologies           Tautologies
}

// DefaultPrefixSuffix is used when a query matched a learned pattern on both
// the prefix and suffix side of its parameter slot: the strictest rule set.
func DefaultPrefixSuffix() Parameters {
	return Parameters{
		DisallowLineComments:  true,
		DisallowBlockComments: true,
		DisallowTimeDelays:    true,
		MultiQueries:          MultiDisallowAll,
		Tautologies:           TautologyDisallowAll,
	}
}

// DefaultPrefix is used when only the prefix matched. Line comments are
// permitted here on the theory that an attacker using NULL-byte injection in
// place of a comment would otherwise evade the suffix check entirely; block
// comments and time delays stay forbidden.
func DefaultPrefix() Parameters {
	return Parameters{
		DisallowLineComments:  false,
		DisallowBlockComments: true,
		DisallowTimeDelays:    true,
		MultiQueries:          MultiDisallowCommit,
		Tautologies:           TautologyDisallowCommon,
	}
}

// DefaultNoPattern is used when neither side matched a learned pattern; all
// rules are relaxed since there is no known-safe shape to compare against.
func DefaultNoPattern() Parameters {
	return Parameters{
		DisallowLineComments:  false,
		DisallowBlockComments: false,
		DisallowTimeDelays:    false,
		MultiQueries:          MultiAllowAll,
		Tautologies:           TautologyAllowAll,
	}
}

// IsMalicious runs params against tokens (a forward-scanned query, in source
// order) and reports whether any rule fired.
//
// The truncation check (a block comment as the last non-whitespace token)
// always fires regardless of DisallowBlockComments, per spec.md §4.G and
// scenario S4: an unterminated block comment at the end of a query is never
// a legitimate shape, since it would only ever truncate what the backend
// actually executes.
func IsMalicious(tokens []scan.Positioned, params Parameters) bool {
	if endsInBlockComment(tokens) {
		return true
	}

	hasSemicolon := false
	hasCommit := false
	otherIndicationFired := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i].Token

		switch tok.Kind {
		case token.KindSymbol:
			if tok.Symbol == ';' {
				hasSemicolon = true
			}
		case token.KindLineComment:
			if params.DisallowLineComments {
				return true
			}
		case token.KindBlockComment:
			if params.DisallowBlockComments {
				return true
			}
			otherIndicationFired = true
		case token.KindIdentifier:
			if params.DisallowTimeDelays && sleepFunctions[strings.ToUpper(tok.Text)] {
				otherIndicationFired = true
				return true
			}
		case token.KindKeyword:
			switch tok.Keyword {
			case token.KeywordCommit, token.KeywordBegin, token.KeywordRollback:
				hasCommit = true
			case token.KeywordOr:
				if params.Tautologies != TautologyAllowAll && isTautology(tokens[i+1:]) {
					otherIndicationFired = true
					if params.Tautologies == TautologyDisallowAll || params.Tautologies == TautologyDisallowCommon || params.Tautologies == TautologyAllowWhereTrue {
						return true
					}
				}
			}
		}
	}

	if hasSemicolon {
		switch params.MultiQueries {
		case MultiDisallowAll:
			return true
		case MultiDisallowCommit:
			if hasCommit {
				return true
			}
		case MultiDisallowOnOtherIndications:
			if otherIndicationFired {
				return true
			}
		case MultiAllowAll:
		}
	}

	return false
}

// endsInBlockComment reports whether the last non-whitespace token in
// tokens is a block comment — spec.md's truncation-attack marker.
func endsInBlockComment(tokens []scan.Positioned) bool {
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i].Token
		if tok.IsWhitespace() {
			continue
		}
		return tok.Kind == token.KindBlockComment
	}
	return false
}

// isTautology implements spec.md §4.G's tautology detector over the tokens
// following OR (the caller passes them with whitespace still in place, so it
// is skipped here), ported from cockroach_detector.rs's is_tautology.
func isTautology(rest []scan.Positioned) bool {
	toks := skipWhitespace(rest)

	if len(toks) == 0 {
		return false
	}

	first := toks[0].Token

	switch {
	case first.Kind == token.KindKeyword && first.Keyword == token.KeywordTrue:
		return true

	case first.Kind == token.KindConstant:
		rem := skipWhitespace(toks[1:])
		if len(rem) >= 2 && rem[0].Token.Kind == token.KindSymbol && rem[0].Token.Symbol == '=' && rem[1].Token.Kind == token.KindConstant {
			return first.DeepEqual(rem[1].Token)
		}
		if len(rem) >= 3 &&
			((rem[0].Token.Kind == token.KindSymbol && rem[0].Token.Symbol == '!' && rem[1].Token.Kind == token.KindSymbol && rem[1].Token.Symbol == '=') ||
				(rem[0].Token.Kind == token.KindSymbol && rem[0].Token.Symbol == '<' && rem[1].Token.Kind == token.KindSymbol && rem[1].Token.Symbol == '>')) &&
			rem[2].Token.Kind == token.KindConstant {
			c2 := rem[2].Token
			return first.Equal(c2) && !first.DeepEqual(c2)
		}
	}

	// No recognized fixed-shape tautology at the head of the expression.
	// Fall back to the "no live column reference" rule: if every remaining
	// identifier/non-reserved-keyword is immediately followed by `(` (i.e.
	// it's a function call, not a column reference), the expression has no
	// way to vary at runtime and is treated as a tautology.
	for i := 0; i < len(toks); i++ {
		tok := toks[i].Token
		if tok.Kind != token.KindIdentifier && !(tok.Kind == token.KindKeyword && !token.Reserved(tok.Keyword)) {
			continue
		}
		if !followedByOpenParen(toks, i) {
			return false
		}
	}
	return true
}

func followedByOpenParen(toks []scan.Positioned, idx int) bool {
	next := skipWhitespace(toks[idx+1:])
	return len(next) > 0 && next[0].Token.Kind == token.KindSymbol && next[0].Token.Symbol == '('
}

func skipWhitespace(toks []scan.Positioned) []scan.Positioned {
	i := 0
	for i < len(toks) && toks[i].Token.IsWhitespace() {
		i++
	}
	return toks[i:]
}
