package scan

import (
	"strings"

	"github.com/mickamy/sqlfortify/internal/token"
)

// region is a byte range of the original query that pass 1 identified as the
// interior of a string, quoted identifier, dollar-quoted string or comment,
// plus the single folded token that should replace every raw token falling
// inside it.
type region struct {
	start, end int
	tok        token.Token
}

// findRegions performs the layering analysis described in spec.md §4.B in a
// single forward pass. The quote/dollar-quote/line-comment rules are a
// property of the query text itself, not of scan direction, so both Forward
// and Reverse fold those against the same region set. Block comments are
// not symmetric: the original source's scan_with_parameters matches
// delimiters in whichever direction it is scanning, so `/*` only opens a
// region going forward, and a bare `*/` (no preceding `/*`) only opens one
// going in reverse — see findOrphanCloseRegion.
func findRegions(query string, reverse bool) []region {
	var regions []region
	n := len(query)
	i := 0
	for i < n {
		c := query[i]
		switch {
		case c == '\'':
			end := scanSingleQuoted(query, i)
			regions = append(regions, region{i, end, token.Token{Kind: token.KindConstant, ConstKind: token.ConstString, Text: query[i:end]}})
			i = end

		case c == '"':
			end := scanDoubleQuoted(query, i)
			regions = append(regions, region{i, end, token.Token{Kind: token.KindIdentifier, Text: query[i:end]}})
			i = end

		case c == '$' && dollarTagAt(query, i) != nil:
			tag := *dollarTagAt(query, i)
			end := scanDollarQuoted(query, i, tag)
			regions = append(regions, region{i, end, token.Token{Kind: token.KindConstant, ConstKind: token.ConstDollar, Text: query[i:end]}})
			i = end

		case c == '-' && i+1 < n && query[i+1] == '-':
			regions = append(regions, region{i, n, token.Token{Kind: token.KindLineComment, Text: query[i:n]}})
			i = n

		case c == '/' && i+1 < n && query[i+1] == '*':
			end := scanBlockComment(query, i)
			regions = append(regions, region{i, end, token.Token{Kind: token.KindBlockComment, Text: query[i:end]}})
			i = end

		default:
			i++
		}
	}
	if reverse {
		if orphan := findOrphanCloseRegion(query, regions); orphan != nil {
			regions = append(regions, *orphan)
		}
	}
	return regions
}

// findOrphanCloseRegion locates the last `*/` in query that a forward pass
// did not already fold into a matched block-comment region. Scanning in
// reverse, that marker is encountered before any opener, so — per
// original_source's direction-conditional BlockCommentClose handling — it
// is treated as the opening delimiter of a comment region running from the
// start of the query through the end of that marker, the mirror image of a
// forward unterminated `/*` running to the end of the query.
func findOrphanCloseRegion(query string, covered []region) *region {
	n := len(query)
	for i := n - 2; i >= 0; i-- {
		if query[i] != '*' || query[i+1] != '/' {
			continue
		}
		end := i + 2
		if regionAt(covered, i) != nil {
			continue
		}
		return &region{0, end, token.Token{Kind: token.KindBlockComment, Text: query[:end]}}
	}
	return nil
}

// scanSingleQuoted finds the end (exclusive) of a single-quoted string
// starting at start, honoring doubled ('') and backslash-escaped (\')
// apostrophes. An unterminated string runs best-effort to end of input.
func scanSingleQuoted(query string, start int) int {
	n := len(query)
	i := start + 1
	for i < n {
		if query[i] == '\\' && i+1 < n {
			i += 2
			continue
		}
		if query[i] == '\'' {
			if i+1 < n && query[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return n
}

// scanDoubleQuoted finds the end (exclusive) of a quoted identifier, where
// only a doubled quote ("") is a literal quote (no backslash escaping).
func scanDoubleQuoted(query string, start int) int {
	n := len(query)
	i := start + 1
	for i < n {
		if query[i] == '"' {
			if i+1 < n && query[i+1] == '"' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return n
}

// dollarTagAt reports the tag of a `$tag$` opener beginning at i, or nil if
// i does not begin one (including the empty-tag form `$$`).
func dollarTagAt(query string, i int) *string {
	n := len(query)
	j := i + 1
	if j < n && isDigit(rune(query[j])) {
		// Digits immediately after `$` belong to a Placeholder, not a tag.
		return nil
	}
	for j < n && query[j] != '$' && isIdentCont(rune(query[j])) {
		j++
	}
	if j < n && query[j] == '$' {
		tag := query[i+1 : j]
		return &tag
	}
	return nil
}

// scanDollarQuoted finds the end (exclusive) of a dollar-quoted string,
// terminated by the next literal occurrence of the same `$tag$` marker. Per
// the documented source behavior, a nested opener using a different tag is
// plain content; a nested opener using the *same* tag closes the region on
// first match rather than requiring balanced nesting.
func scanDollarQuoted(query string, start int, tag string) int {
	opener := "$" + tag + "$"
	searchFrom := start + len(opener)
	if searchFrom > len(query) {
		return len(query)
	}
	idx := strings.Index(query[searchFrom:], opener)
	if idx < 0 {
		return len(query)
	}
	return searchFrom + idx + len(opener)
}

// scanBlockComment finds the end (exclusive) of a `/* */` comment, with
// support for nested block comments. An unterminated comment runs
// best-effort to end of input.
func scanBlockComment(query string, start int) int {
	n := len(query)
	depth := 1
	i := start + 2
	for i < n && depth > 0 {
		switch {
		case i+1 < n && query[i] == '/' && query[i+1] == '*':
			depth++
			i += 2
		case i+1 < n && query[i] == '*' && query[i+1] == '/':
			depth--
			i += 2
		default:
			i++
		}
	}
	return i
}

// fold replaces every raw token that falls inside a region with that
// region's single folded token, emitted once at the region's start offset;
// raw tokens outside of any region pass through unchanged. raw may list
// tokens in forward or reverse order — fold preserves whatever order it is
// given.
func fold(raw []rawToken, regions []region) []Positioned {
	out := make([]Positioned, 0, len(raw))
	emitted := make(map[int]bool, len(regions))
	for _, rt := range raw {
		r := regionAt(regions, rt.offset)
		if r == nil {
			out = append(out, Positioned{rt.tok, rt.offset})
			continue
		}
		if !emitted[r.start] {
			out = append(out, Positioned{r.tok, r.start})
			emitted[r.start] = true
		}
	}
	return out
}

func regionAt(regions []region, offset int) *region {
	for i := range regions {
		r := &regions[i]
		if offset >= r.start && offset < r.end {
			return r
		}
	}
	return nil
}

func layerForward(query string, raw []rawToken) []Positioned {
	return fold(raw, findRegions(query, false))
}

func layerReverse(query string, raw []rawToken) []Positioned {
	return fold(raw, findRegions(query, true))
}
