// Package scan implements the two-pass lexical scanner described by
// spec.md §4.B: a structural ("raw") pass with one-character lookahead,
// followed by a "layering" pass that folds string, quoted-identifier,
// dollar-quoted and comment regions into single tokens.
//
// The scanning style (an index loop over the query that peeks one rune
// ahead) is grounded on sqldef-sqldef/parser/token.go's Tokenizer.
package scan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mickamy/sqlfortify/internal/token"
)

// Positioned pairs a Token with the byte offset at which it begins in the
// original query text (or, for a reverse scan, the offset at which it
// begins when read left to right — offsets are never synthesized relative
// to scan direction).
type Positioned struct {
	Token  token.Token
	Offset int
}

// Forward scans query left to right and returns the layered token stream in
// source order.
func Forward(query string) []Positioned {
	raw := rawForward(query)
	return layerForward(query, raw)
}

// Reverse scans query right to left and returns the layered token stream in
// reverse source order (the first element is the last token in the query).
func Reverse(query string) []Positioned {
	raw := rawReverse(query)
	return layerReverse(query, raw)
}

// rawToken is an intermediate structural token before the layering pass
// folds quoted/commented regions together.
type rawToken struct {
	tok    token.Token
	offset int
	length int
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentCont(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// rawForward produces pass-1 structural tokens left to right.
func rawForward(query string) []rawToken {
	var out []rawToken
	i := 0
	n := len(query)

	peekAt := func(pos int) (rune, int) {
		if pos >= n {
			return 0, 0
		}
		return utf8.DecodeRuneInString(query[pos:])
	}

	for i < n {
		r, size := peekAt(i)
		start := i

		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			out = append(out, rawToken{token.Token{Kind: token.KindWhitespace, Symbol: r}, start, size})
			i += size

		case r == '\'':
			out = append(out, rawToken{token.Token{Kind: token.KindSymbol, Symbol: '\''}, start, size})
			i += size

		case r == '"':
			out = append(out, rawToken{token.Token{Kind: token.KindSymbol, Symbol: '"'}, start, size})
			i += size

		case r == '-' && peekRune(query, i+size) == '-':
			out = append(out, rawToken{token.Token{Kind: token.KindLineComment}, start, 2})
			i += 2

		case r == '/' && peekRune(query, i+size) == '*':
			out = append(out, rawToken{token.Token{Kind: token.KindBlockComment, Text: "open"}, start, 2})
			i += 2

		case r == '*' && peekRune(query, i+size) == '/':
			out = append(out, rawToken{token.Token{Kind: token.KindBlockComment, Text: "close"}, start, 2})
			i += 2

		case r == '$':
			tok, length := scanDollar(query, i)
			out = append(out, rawToken{tok, start, length})
			i += length

		case isDigit(r) || (r == '.' && isDigit(peekRune(query, i+size))):
			tok, length := scanNumber(query, i)
			out = append(out, rawToken{tok, start, length})
			i += length

		case isIdentStart(r):
			tok, length := scanIdent(query, i)
			out = append(out, rawToken{tok, start, length})
			i += length

		case strings.ContainsRune("()[]{},;.+-*/%<>=!~^&|", r):
			out = append(out, rawToken{token.Token{Kind: token.KindSymbol, Symbol: r}, start, size})
			i += size

		default:
			out = append(out, rawToken{token.Token{Kind: token.KindUnknown, Text: string(r)}, start, size})
			i += size
		}
	}
	return out
}

func peekRune(s string, pos int) rune {
	if pos >= len(s) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return r
}

// scanDollar handles `$1` placeholders and `$tag$` dollar-quote openers, per
// spec.md §4.B: "$ followed by digits is a Placeholder; $ followed by an
// identifier and another $ is a DollarQuote opening with that tag; $
// followed only by identifier characters and EOF is an UnknownChar."
func scanDollar(query string, start int) (token.Token, int) {
	i := start + 1
	if i < len(query) && isDigit(rune(query[i])) {
		j := i
		for j < len(query) && isDigit(rune(query[j])) {
			j++
		}
		return token.Token{Kind: token.KindPlaceholder, Text: query[start:j]}, j - start
	}
	j := i
	for j < len(query) && isIdentCont(rune(query[j])) && query[j] != '$' {
		j++
	}
	if j < len(query) && query[j] == '$' {
		tag := query[i:j]
		return token.Token{Kind: token.KindSymbol, Symbol: '$', Text: tag}, j + 1 - start
	}
	return token.Token{Kind: token.KindUnknown, Text: query[start:j]}, j - start
}

// scanNumber implements spec.md §4.B's numeric rules: hex via 0x, float via
// a decimal point and optional exponent, else integer. All three fold into
// KindConstant; ConstKind records which.
func scanNumber(query string, start int) (token.Token, int) {
	i := start
	if i+1 < len(query) && query[i] == '0' && (query[i+1] == 'x' || query[i+1] == 'X') {
		j := i + 2
		for j < len(query) && isHexDigit(rune(query[j])) {
			j++
		}
		return token.Token{Kind: token.KindConstant, ConstKind: token.ConstBit, Text: query[start:j]}, j - start
	}
	j := i
	isFloat := false
	for j < len(query) && isDigit(rune(query[j])) {
		j++
	}
	if j < len(query) && query[j] == '.' {
		isFloat = true
		j++
		for j < len(query) && isDigit(rune(query[j])) {
			j++
		}
	}
	if j < len(query) && (query[j] == 'e' || query[j] == 'E') {
		k := j + 1
		if k < len(query) && (query[k] == '+' || query[k] == '-') {
			k++
		}
		if k < len(query) && isDigit(rune(query[k])) {
			isFloat = true
			for k < len(query) && isDigit(rune(query[k])) {
				k++
			}
			j = k
		}
	}
	kind := token.ConstInt
	if isFloat {
		kind = token.ConstFloat
	}
	return token.Token{Kind: token.KindConstant, ConstKind: kind, Text: query[start:j]}, j - start
}

func scanIdent(query string, start int) (token.Token, int) {
	i := start
	_, size := utf8.DecodeRuneInString(query[i:])
	i += size
	for i < len(query) {
		r, sz := utf8.DecodeRuneInString(query[i:])
		if !isIdentCont(r) {
			break
		}
		i += sz
	}
	text := query[start:i]
	upper := strings.ToUpper(text)
	if kw, ok := token.LookupKeyword(upper); ok {
		return token.Token{Kind: token.KindKeyword, Keyword: kw, Text: text}, i - start
	}
	return token.Token{Kind: token.KindIdentifier, Text: text}, i - start
}

// rawReverse returns rawForward's tokens in reverse order; the query itself
// is always tokenized left to right.
func rawReverse(query string) []rawToken {
	fwd := rawForward(query)
	rev := make([]rawToken, len(fwd))
	for i, t := range fwd {
		rev[len(fwd)-1-i] = t
	}
	return rev
}
