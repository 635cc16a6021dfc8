package health

import "testing"

func TestBackoffDoublesAndCaps(t *testing.T) {
	var b backoff
	want := []int64{1, 2, 4, 8, 16, 32, 60, 60, 60}
	for i, w := range want {
		got := b.next()
		if got.Seconds() != float64(w) {
			t.Errorf("next() call %d = %v, want %ds", i, got, w)
		}
	}
}

func TestBackoffResetsAfterSustainedHealthy(t *testing.T) {
	var b backoff
	b.next()
	b.next()
	b.next()
	b.reset()
	if got := b.next(); got != backoffBase {
		t.Errorf("next() after reset = %v, want %v", got, backoffBase)
	}
}
