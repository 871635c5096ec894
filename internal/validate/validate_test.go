package validate_test

import (
	"errors"
	"testing"

	"github.com/mickamy/sqlfortify/internal/validate"
)

// TestCheckQueryLearnsParameterSlot reproduces spec.md §8 scenario S1: the
// first query is learned via UpdateGoodQuery (simulating a successful
// backend response), and a second query differing only in the literal value
// of the WHERE clause is recognized as the same learned shape.
func TestCheckQueryLearnsParameterSlot(t *testing.T) {
	t.Parallel()
	v := validate.New()

	q1 := "SELECT id FROM users WHERE name = 'alice'"
	if err := v.CheckQuery(q1); err != nil {
		t.Fatalf("first query should pass with an empty matcher: %v", err)
	}
	v.UpdateGoodQuery(q1)

	q2 := "SELECT id FROM users WHERE name = 'bob'"
	if err := v.CheckQuery(q2); err != nil {
		t.Fatalf("second query sharing the same shape should pass: %v", err)
	}
}

// TestCheckQueryClassicTautology reproduces spec.md §8 scenario S2.
func TestCheckQueryClassicTautology(t *testing.T) {
	t.Parallel()
	v := validate.New()

	q1 := "SELECT id FROM users WHERE name = 'alice'"
	_ = v.CheckQuery(q1)
	v.UpdateGoodQuery(q1)
	q2 := "SELECT id FROM users WHERE name = 'bob'"
	_ = v.CheckQuery(q2)
	v.UpdateGoodQuery(q2)

	injected := "SELECT id FROM users WHERE name = 'bob' OR 1=1"
	err := v.CheckQuery(injected)
	if !errors.Is(err, validate.ErrMaliciousPattern) {
		t.Fatalf("got %v, want ErrMaliciousPattern", err)
	}
}

// TestCheckQueryVulnerablePrefixLockout reproduces spec.md §8 scenario S3:
// immediately after a detected injection, a sibling query sharing the same
// parameter slot is rejected without the detector even running.
func TestCheckQueryVulnerablePrefixLockout(t *testing.T) {
	t.Parallel()
	v := validate.New()

	q1 := "SELECT id FROM users WHERE name = 'alice'"
	_ = v.CheckQuery(q1)
	v.UpdateGoodQuery(q1)
	q2 := "SELECT id FROM users WHERE name = 'bob'"
	_ = v.CheckQuery(q2)
	v.UpdateGoodQuery(q2)

	injected := "SELECT id FROM users WHERE name = 'bob' OR 1=1"
	if err := v.CheckQuery(injected); !errors.Is(err, validate.ErrMaliciousPattern) {
		t.Fatalf("got %v, want ErrMaliciousPattern", err)
	}

	sibling := "SELECT id FROM users WHERE name = 'carol' AND role = 'admin'"
	if err := v.CheckQuery(sibling); !errors.Is(err, validate.ErrVulnerablePrefix) {
		t.Fatalf("got %v, want ErrVulnerablePrefix", err)
	}
}

// TestUpdateBadQueryMarksVulnerable confirms that a server-rejected query
// (validator said Ok, but the backend disagreed) poisons the matched
// parameter slot, per spec.md §7's "advisory verdict" note.
func TestUpdateBadQueryMarksVulnerable(t *testing.T) {
	t.Parallel()
	v := validate.New()

	q1 := "SELECT id FROM users WHERE name = 'alice'"
	_ = v.CheckQuery(q1)
	v.UpdateGoodQuery(q1)
	q2 := "SELECT id FROM users WHERE name = 'bob'"
	_ = v.CheckQuery(q2)
	v.UpdateBadQuery(q2) // backend rejected this one

	sibling := "SELECT id FROM users WHERE name = 'carol'"
	if err := v.CheckQuery(sibling); !errors.Is(err, validate.ErrVulnerablePrefix) {
		t.Fatalf("got %v, want ErrVulnerablePrefix", err)
	}
}

func TestCheckQueryCommentTruncationTail(t *testing.T) {
	t.Parallel()
	v := validate.New()
	err := v.CheckQuery("SELECT id FROM users WHERE name = 'bob' /*trailing")
	if !errors.Is(err, validate.ErrMaliciousPattern) {
		t.Fatalf("got %v, want ErrMaliciousPattern", err)
	}
}
