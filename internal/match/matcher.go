// Package match implements the dual forward/reverse trie used to recognize
// previously-seen query shapes, per spec.md §4.F.
//
// Two tries are kept in lockstep: fwdRoot indexes token sequences left to
// right, revRoot indexes the same sequences right to left. A leaf reached by
// consuming every token of a query is marked as a valid pattern. Because
// every learned query has exactly one parameter slot (spec.md §3), the node
// just before that slot in the forward trie records next_param_id — the
// identity of the child standing in for the parameter — which lets
// MatchPrefix recognize "known shape up to its one variable value" without
// requiring an exact match, and lets MatchSuffix resume matching on the far
// side of that slot.
//
// Ported from original_source/src/matcher.rs's SqlMatcher<T>, specialized to
// token.Token since this codebase has exactly one token type.
package match

import (
	"github.com/mickamy/sqlfortify/internal/scan"
	"github.com/mickamy/sqlfortify/internal/token"
)

// NodeID identifies a trie node. IDs are assigned in allocation order and
// are comparable, so a NodeID learned from one tree (e.g. the forward tree's
// node just before a parameter) can be compared against one recorded earlier
// for the same logical slot.
type NodeID int

// node is a single trie vertex. next is keyed by token.Key so that edges
// follow shape equality (all Constants share one edge, Identifiers fold
// case) rather than Go's default struct equality.
type node struct {
	id             NodeID
	nextParamID    *NodeID
	isValidPattern bool
	isVulnPrefix   bool
	isConstant     bool
	next           map[token.Key]edge
}

// edge pairs a trie child with the representative token that produced it,
// so later inserts can deep-compare a new param token's literal syntax
// against whichever token first created this edge.
type edge struct {
	tok  token.Token
	node *node
}

func newNode(id NodeID) *node {
	return &node{id: id, isConstant: true, next: make(map[token.Key]edge)}
}

// NodeInfo describes where a prefix or suffix match landed.
type NodeInfo struct {
	node             *node
	AbsoluteIndex    int
	DirectionalIndex int
	IsExactMatch     bool
	HasVulnPrefix    bool
}

// ID returns the parameter-slot identity (next_param_id) of the node a match
// landed on, for use as the vulnPrefixID argument to MarkVuln. A node with
// no parameter slot ahead of it (possible only for an exact match) reports
// its own id instead.
func (ni *NodeInfo) ID() NodeID {
	if ni.node.nextParamID != nil {
		return *ni.node.nextParamID
	}
	return ni.node.id
}

// Matcher holds the forward and reverse tries and the shared node-ID
// allocator.
type Matcher struct {
	fwdRoot *node
	revRoot *node
	counter NodeID
}

// New returns an empty Matcher.
func New() *Matcher {
	m := &Matcher{}
	m.fwdRoot = newNode(m.nextNodeID())
	m.revRoot = newNode(m.nextNodeID())
	return m
}

func (m *Matcher) nextNodeID() NodeID {
	m.counter++
	return m.counter
}

func (m *Matcher) getChild(n *node, tok token.Token) *node {
	if e, ok := n.next[tok.Key()]; ok {
		return e.node
	}
	return nil
}

func (m *Matcher) getKeyValue(n *node, tok token.Token) (token.Token, *node, bool) {
	e, ok := n.next[tok.Key()]
	if !ok {
		return token.Token{}, nil, false
	}
	return e.tok, e.node, true
}

func (m *Matcher) getChildUpdate(n *node, tok token.Token) *node {
	k := tok.Key()
	if e, ok := n.next[k]; ok {
		return e.node
	}
	child := newNode(m.nextNodeID())
	n.next[k] = edge{tok: tok, node: child}
	return child
}

// MatchPrefix walks the forward trie against forwardTokens and reports the
// deepest useful match: an exact match if every token was consumed and the
// final node is a valid pattern, otherwise the last node encountered that
// still has an open parameter slot ahead of it (its next_param_id), since
// that is the node MatchSuffix needs to resume from. It returns nil if
// neither a valid pattern nor a parameter slot was ever reached.
func (m *Matcher) MatchPrefix(forwardTokens []scan.Positioned) *NodeInfo {
	var lastParamParent *node
	n := m.fwdRoot
	prefixIndex := 0
	absoluteIndex := 0
	lastOffset := 0
	hasVulnPrefix := false

	for idx, pt := range forwardTokens {
		lastOffset = pt.Offset
		if n.nextParamID != nil {
			lastParamParent = n
			prefixIndex = idx
			absoluteIndex = pt.Offset
		}
		if n.isVulnPrefix {
			hasVulnPrefix = true
		}

		next := m.getChild(n, pt.Token)
		if next == nil {
			break // prefix found
		}
		n = next

		if idx == len(forwardTokens)-1 && n.isValidPattern {
			return &NodeInfo{
				node:             n,
				AbsoluteIndex:    pt.Offset,
				DirectionalIndex: idx,
				IsExactMatch:     true,
				HasVulnPrefix:    hasVulnPrefix,
			}
		}
	}

	// Every token was consumed without a break, so the loop above never
	// checked the final node's own nextParamID — only the pre-consumption
	// node at the top of each iteration. A query that lands exactly on a
	// parameter slot without supplying a constant for it would otherwise
	// fall through unrecognized as an open-param prefix.
	if n.nextParamID != nil {
		lastParamParent = n
		prefixIndex = len(forwardTokens)
		absoluteIndex = lastOffset
	}

	if lastParamParent == nil {
		return nil
	}
	return &NodeInfo{
		node:             lastParamParent,
		AbsoluteIndex:    absoluteIndex,
		DirectionalIndex: prefixIndex,
		IsExactMatch:     false,
		HasVulnPrefix:    hasVulnPrefix,
	}
}

// MatchSuffix walks the reverse trie against reverseTokens, starting after
// prefix's parameter slot, and returns the longest suffix match found before
// the suffix would overlap the prefix. It returns nil if prefix does not
// carry an open parameter slot, which can happen for an exact-match result
// of MatchPrefix; its non-exact results always carry one.
func (m *Matcher) MatchSuffix(reverseTokens []scan.Positioned, prefix *NodeInfo) *NodeInfo {
	if prefix.node.nextParamID == nil {
		return nil
	}

	var suffix *NodeInfo
	n := m.revRoot
	for idx, pt := range reverseTokens {
		if pt.Offset <= prefix.AbsoluteIndex {
			break // suffix would overlap the prefix
		}

		// We want the longest suffix, so later iterations overwrite earlier
		// ones here.
		suffix = &NodeInfo{
			node:             n,
			AbsoluteIndex:    pt.Offset,
			DirectionalIndex: idx,
			IsExactMatch:     false,
			HasVulnPrefix:    false,
		}

		next := m.getChild(n, pt.Token)
		if next == nil {
			break // suffix found
		}
		n = next
	}
	return suffix
}

// IsExactMatch reports whether a forward walk over sqlQuery consumes every
// token and lands on a node previously marked is_valid_pattern by
// UpdatePattern.
func (m *Matcher) IsExactMatch(sqlQuery []scan.Positioned) bool {
	n := m.fwdRoot
	for _, pt := range sqlQuery {
		next := m.getChild(n, pt.Token)
		if next == nil {
			return false
		}
		n = next
	}
	return n.isValidPattern
}

// MarkVuln records that a query is malicious, so future queries sharing its
// prefix are rejected outright instead of being matched token by token.
//
// When vulnPrefixID is non-nil (the query matched a known pattern's
// parameter slot but failed validation some other way — see package
// validate), it walks the forward trie looking for the node whose
// next_param_id equals vulnPrefixID and marks that node. When vulnPrefixID
// is nil (the query never matched anything at all), it walks sqlQuery until
// it reaches the first parameter token, creating forward-trie nodes as
// needed, and marks the node just before that slot.
func (m *Matcher) MarkVuln(sqlQuery []scan.Positioned, vulnPrefixID *NodeID) {
	n := m.fwdRoot

	if vulnPrefixID != nil {
		for _, pt := range sqlQuery {
			if n.nextParamID != nil && *n.nextParamID == *vulnPrefixID {
				n.isVulnPrefix = true
				return
			}

			next := m.getChild(n, pt.Token)
			if next == nil {
				n.isVulnPrefix = true // should never happen
				return
			}
			n = next
		}
		if n.nextParamID != nil && *n.nextParamID == *vulnPrefixID {
			n.isVulnPrefix = true
		}
		return
	}

	for _, pt := range sqlQuery {
		if pt.Token.IsParamToken() {
			n.isVulnPrefix = true
			return
		}
		n = m.getChildUpdate(n, pt.Token)
	}
	n.isVulnPrefix = true
}

// fwdEntry pairs a consumed token with the forward-trie node it produced, so
// updateRevTree can reuse the forward tree's node identities instead of
// minting its own.
type fwdEntry struct {
	tok token.Token
	id  NodeID
}

// UpdatePattern learns sqlQuery as a valid shape, inserting forward and
// reverse trie nodes as needed and widening either tree's parameter slot if
// this query's literal value doesn't deep-match whatever first occupied that
// slot.
func (m *Matcher) UpdatePattern(sqlQuery []scan.Positioned) {
	entries := m.updateFwdTree(sqlQuery)
	m.updateRevTree(entries)
}

func (m *Matcher) updateFwdTree(sqlQuery []scan.Positioned) []fwdEntry {
	n := m.fwdRoot
	entries := make([]fwdEntry, 0, len(sqlQuery))

	for _, pt := range sqlQuery {
		tok := pt.Token
		if existingTok, child, ok := m.getKeyValue(n, tok); ok {
			if tok.IsParamToken() && !tok.DeepEqual(existingTok) {
				child.isConstant = false
				id := child.id
				n.nextParamID = &id
			}
		}

		n = m.getChildUpdate(n, tok)
		entries = append(entries, fwdEntry{tok: tok, id: n.id})
	}

	n.isValidPattern = true
	return entries
}

func (m *Matcher) updateRevTree(fwdNodes []fwdEntry) {
	n := m.revRoot

	for i := len(fwdNodes) - 1; i >= 0; i-- {
		e := fwdNodes[i]
		if existingTok, child, ok := m.getKeyValue(n, e.tok); ok {
			if e.tok.IsParamToken() && !e.tok.DeepEqual(existingTok) {
				child.isConstant = false
				id := e.id
				n.nextParamID = &id
			}
		}
		n = m.getChildUpdate(n, e.tok)
	}

	n.isValidPattern = true
}
