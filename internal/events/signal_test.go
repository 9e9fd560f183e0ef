package events_test

import (
	"reflect"
	"testing"

	"github.com/micro-nova/amplipi-prefs/internal/events"
)

func TestSignal_EmitInRegistrationOrder(t *testing.T) {
	var s events.Signal[int]
	var got []string

	s.Add(func(v int) { got = append(got, "a") })
	s.Add(func(v int) { got = append(got, "b") })
	s.Add(func(v int) { got = append(got, "c") })

	s.Emit(1)

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("emit order = %v, want %v", got, want)
	}
}

func TestSignal_PassesValue(t *testing.T) {
	var s events.Signal[string]
	var got string
	s.Add(func(v string) { got = v })

	s.Emit("dark")

	if got != "dark" {
		t.Errorf("listener got %q, want %q", got, "dark")
	}
}

func TestSignal_Remove(t *testing.T) {
	var s events.Signal[int]
	calls := 0
	h := s.Add(func(int) { calls++ })

	if !s.Remove(h) {
		t.Fatal("Remove() = false, want true")
	}
	if s.Remove(h) {
		t.Error("second Remove() = true, want false")
	}
	s.Emit(1)
	if calls != 0 {
		t.Errorf("removed listener called %d times", calls)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSignal_NilListenerIgnored(t *testing.T) {
	var s events.Signal[int]
	if h := s.Add(nil); h != 0 {
		t.Errorf("Add(nil) = %d, want 0", h)
	}
	s.Emit(1) // must not panic
}

func TestSignal_AddDuringEmitAffectsNextEmit(t *testing.T) {
	var s events.Signal[int]
	late := 0
	s.Add(func(int) {
		s.Add(func(int) { late++ })
	})

	s.Emit(1)
	if late != 0 {
		t.Errorf("listener added during emit ran in same emit (%d calls)", late)
	}
	s.Emit(2)
	if late != 1 {
		t.Errorf("late listener calls = %d, want 1", late)
	}
}

func TestSignal_RemoveDuringEmitKeepsCurrentEmission(t *testing.T) {
	var s events.Signal[int]
	var second events.Handle
	calls := 0
	s.Add(func(int) { s.Remove(second) })
	second = s.Add(func(int) { calls++ })

	s.Emit(1)
	if calls != 1 {
		t.Errorf("second listener calls = %d, want 1 (snapshot)", calls)
	}
	s.Emit(2)
	if calls != 1 {
		t.Errorf("second listener calls after removal = %d, want 1", calls)
	}
}
