package updater

import "testing"

// TestStreamOrderAndUnsubscribe verifies handlers run in registration order
// and that unsubscribing one handler leaves the others intact.
func TestStreamOrderAndUnsubscribe(t *testing.T) {
	var s stream[int]
	var got []string

	unsubA := s.subscribe(func(v int) { got = append(got, "a") })
	s.subscribe(func(v int) { got = append(got, "b") })

	s.publish(1)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("delivery order = %v, want [a b]", got)
	}

	unsubA()
	unsubA() // double unsubscribe is a no-op
	got = nil

	s.publish(2)
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("after unsubscribe = %v, want [b]", got)
	}
}
