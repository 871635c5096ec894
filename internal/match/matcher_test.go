package match

import (
	"testing"

	"github.com/mickamy/sqlfortify/internal/scan"
)

func TestMatchPrefixExactMatchAfterLearning(t *testing.T) {
	t.Parallel()
	m := New()
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE id = 1"))

	// A different literal in the same slot is still the same shape: the
	// trie edge for a Constant never distinguishes by text.
	info := m.MatchPrefix(scan.Forward("SELECT * FROM users WHERE id = 999"))
	if info == nil || !info.IsExactMatch {
		t.Fatalf("got %+v, want exact match", info)
	}
}

func TestMatchPrefixUnknownQueryMisses(t *testing.T) {
	t.Parallel()
	m := New()
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE id = 1"))

	info := m.MatchPrefix(scan.Forward("DELETE FROM users"))
	if info != nil {
		t.Fatalf("got %+v, want nil (no shared prefix, no learned param slot)", info)
	}
}

func TestMatchPrefixFallsBackToParamSlotOnInjectedTail(t *testing.T) {
	t.Parallel()
	m := New()
	// Two distinct literals in the same slot are required before the
	// matcher records that position as a parameter worth resuming from.
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE id = 1"))
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE id = 2"))

	injected := "SELECT * FROM users WHERE id = 3 OR 1=1"
	info := m.MatchPrefix(scan.Forward(injected))
	if info == nil {
		t.Fatal("got nil, want a param-slot fallback match")
	}
	if info.IsExactMatch {
		t.Fatal("got exact match, want fallback (query has an injected tail)")
	}
}

func TestMatchPrefixNoFallbackWithoutTwoLearnedLiterals(t *testing.T) {
	t.Parallel()
	m := New()
	// Only one literal ever learned at this slot: next_param_id was never
	// set, so there is nothing to fall back to.
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE id = 1"))

	injected := "SELECT * FROM users WHERE id = 3 OR 1=1"
	info := m.MatchPrefix(scan.Forward(injected))
	if info != nil {
		t.Fatalf("got %+v, want nil", info)
	}
}

func TestMatchSuffixResumesAfterParamSlot(t *testing.T) {
	t.Parallel()
	m := New()
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE name = 'a' AND age = 5"))
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE name = 'b' AND age = 5"))

	// Shares the learned prefix up through name's parameter slot, diverges
	// immediately after it, then rejoins the learned tail ("AND age = 5").
	injected := "SELECT * FROM users WHERE name = 'a' OR '1'='1' AND age = 5"
	prefix := m.MatchPrefix(scan.Forward(injected))
	if prefix == nil {
		t.Fatal("expected a param-slot fallback prefix match")
	}
	if prefix.IsExactMatch {
		t.Fatal("got exact match, want fallback (query diverges right after the parameter)")
	}

	suffix := m.MatchSuffix(scan.Reverse(injected), prefix)
	if suffix == nil {
		t.Fatal("expected a suffix match against the shared learned tail")
	}
	if suffix.DirectionalIndex == 0 {
		t.Error("expected the suffix match to advance past the trivial first token")
	}
}

func TestMatchSuffixRequiresParamSlotOnPrefix(t *testing.T) {
	t.Parallel()
	m := New()
	m.UpdatePattern(scan.Forward("SELECT 1"))

	// Build a NodeInfo with no parameter slot (as if obtained some other
	// way); MatchSuffix must refuse to walk from it.
	info := &NodeInfo{node: m.fwdRoot}
	if got := m.MatchSuffix(scan.Reverse("SELECT 1"), info); got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestMarkVulnByFirstParamToken(t *testing.T) {
	t.Parallel()
	m := New()
	full := scan.Forward("SELECT * FROM users WHERE id = 1")
	m.MarkVuln(full, nil)

	// The node just before the first Constant token should now be marked;
	// walk every token up to (not including) that Constant to find it.
	n := m.fwdRoot
	for _, pt := range full[:len(full)-1] {
		child := m.getChild(n, pt.Token)
		if child == nil {
			t.Fatalf("expected node to exist for prefix token %v", pt.Token)
		}
		n = child
	}
	if !n.isVulnPrefix {
		t.Error("expected the node before the first parameter token to be marked vuln")
	}
}

func TestMarkVulnByKnownPrefixID(t *testing.T) {
	t.Parallel()
	m := New()
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE id = 1"))
	m.UpdatePattern(scan.Forward("SELECT * FROM users WHERE id = 2"))

	prefix := m.MatchPrefix(scan.Forward("SELECT * FROM users WHERE id = 3 OR 1=1"))
	if prefix == nil {
		t.Fatal("expected a fallback prefix match")
	}
	id := prefix.ID()
	m.MarkVuln(scan.Forward("SELECT * FROM users WHERE id = 3 OR 1=1"), &id)

	if !prefix.node.isVulnPrefix {
		t.Error("expected the matched param-slot node to be marked vuln")
	}
}

func TestUpdatePatternSetsValidPatternOnBothTrees(t *testing.T) {
	t.Parallel()
	m := New()
	m.UpdatePattern(scan.Forward("SELECT 1"))

	fwd := m.MatchPrefix(scan.Forward("SELECT 1"))
	if fwd == nil || !fwd.IsExactMatch {
		t.Fatalf("got %+v, want exact match", fwd)
	}

	rev := m.revRoot
	for _, pt := range scan.Reverse("SELECT 1") {
		rev = m.getChild(rev, pt.Token)
		if rev == nil {
			t.Fatalf("expected reverse-trie node for token %v", pt.Token)
		}
	}
	if !rev.isValidPattern {
		t.Error("expected the reverse trie's final node to be a valid pattern")
	}
}
