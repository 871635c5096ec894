package keypool

import "testing"

func TestTakeIssuesFreshKeysInOrder(t *testing.T) {
	t.Parallel()
	p := New()
	k1 := p.Take()
	k2 := p.Take()
	if k1 != 1 || k2 != 2 {
		t.Fatalf("expected fresh keys 1 then 2, got %d and %d", k1, k2)
	}
}

func TestReturnedKeyIsReissuedBeforeFreshOnes(t *testing.T) {
	t.Parallel()
	p := New()
	k1 := p.Take()
	k2 := p.Take()
	p.Return(k1)

	reissued := p.Take()
	if reissued != k1 {
		t.Fatalf("got %d, want reissued key %d", reissued, k1)
	}

	fresh := p.Take()
	if fresh == k1 || fresh == k2 {
		t.Fatalf("got %d, want a key distinct from %d and %d", fresh, k1, k2)
	}
}
