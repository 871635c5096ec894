package detect_test

import (
	"testing"

	"github.com/mickamy/sqlfortify/internal/detect"
	"github.com/mickamy/sqlfortify/internal/scan"
)

func TestIsMaliciousTautologyNumeric(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT id FROM users WHERE name = 'bob' OR 1=1")
	if !detect.IsMalicious(toks, detect.DefaultPrefixSuffix()) {
		t.Fatal("expected OR 1=1 to be flagged malicious")
	}
}

func TestIsMaliciousTautologyTrue(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT id FROM users WHERE name = 'bob' OR TRUE")
	if !detect.IsMalicious(toks, detect.DefaultPrefixSuffix()) {
		t.Fatal("expected OR TRUE to be flagged malicious")
	}
}

func TestIsMaliciousRealColumnIsNotTautology(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT id FROM users WHERE name = 'bob' OR role = 'admin'")
	if detect.IsMalicious(toks, detect.DefaultPrefixSuffix()) {
		t.Fatal("a real column reference after OR must not be flagged as a tautology")
	}
}

func TestIsMaliciousNotEqualTautology(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT id FROM users WHERE name = 'bob' OR 1!=2")
	if !detect.IsMalicious(toks, detect.DefaultPrefixSuffix()) {
		t.Fatal("expected OR 1!=2 to be flagged malicious (always-true inequality)")
	}
}

func TestIsMaliciousBlockCommentTruncationAlwaysFires(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT id FROM users WHERE name = 'bob' /*trailing")
	// DefaultNoPattern permits block comments, but the truncation rule must
	// fire regardless of DisallowBlockComments.
	params := detect.DefaultNoPattern()
	if !detect.IsMalicious(toks, params) {
		t.Fatal("expected trailing unterminated block comment to be flagged regardless of rule set")
	}
}

func TestIsMaliciousSemicolonDisallowAll(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT 1; SELECT 2")
	if !detect.IsMalicious(toks, detect.DefaultPrefixSuffix()) {
		t.Fatal("expected semicolon to be flagged under DisallowAll")
	}
}

func TestIsMaliciousSemicolonDisallowCommitRequiresCommit(t *testing.T) {
	t.Parallel()
	params := detect.DefaultPrefix()
	clean := scan.Forward("SELECT 1; SELECT 2")
	if detect.IsMalicious(clean, params) {
		t.Fatal("expected bare semicolon to pass under DisallowCommit without a COMMIT keyword")
	}

	withCommit := scan.Forward("SELECT 1; COMMIT")
	if !detect.IsMalicious(withCommit, params) {
		t.Fatal("expected semicolon+COMMIT to be flagged under DisallowCommit")
	}
}

func TestIsMaliciousLineCommentAllowedUnderPrefixOnly(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT * FROM users WHERE id = 1 -- rest ignored")
	if detect.IsMalicious(toks, detect.DefaultPrefix()) {
		t.Fatal("DefaultPrefix permits line comments (null-byte-injection threat model)")
	}
	if !detect.IsMalicious(toks, detect.DefaultPrefixSuffix()) {
		t.Fatal("DefaultPrefixSuffix forbids line comments")
	}
}

func TestIsMaliciousTimeDelay(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT pg_sleep(5)")
	if !detect.IsMalicious(toks, detect.DefaultPrefixSuffix()) {
		t.Fatal("expected pg_sleep to be flagged as a time-delay attack")
	}
}

func TestIsMaliciousNoPatternAllowsEverything(t *testing.T) {
	t.Parallel()
	toks := scan.Forward("SELECT 1; SELECT pg_sleep(5) OR 1=1 -- x")
	if detect.IsMalicious(toks, detect.DefaultNoPattern()) {
		t.Fatal("DefaultNoPattern should allow everything except the truncation rule")
	}
}
