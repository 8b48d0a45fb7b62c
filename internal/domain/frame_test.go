package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewFrame_PreservesOrder(t *testing.T) {
	f, err := NewFrame(
		Entry{Actor: 3, Control: ControlValues{Throttle: 0.1}},
		Entry{Actor: 1, Control: ControlValues{Throttle: 0.2}},
		Entry{Actor: 2, Control: ControlValues{Throttle: 0.3}},
	)
	if err != nil {
		t.Fatalf("NewFrame() error = %v", err)
	}

	got := f.Actors()
	want := []ActorID{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Actors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Actors()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if f.At(1).Control.Throttle != 0.2 {
		t.Errorf("At(1).Control.Throttle = %v, want 0.2", f.At(1).Control.Throttle)
	}
}

func TestNewFrame_RejectsDuplicateActor(t *testing.T) {
	_, err := NewFrame(Entry{Actor: 4}, Entry{Actor: 5}, Entry{Actor: 4})
	if !errors.Is(err, ErrDuplicateActor) {
		t.Fatalf("NewFrame() error = %v, want ErrDuplicateActor", err)
	}
}

func TestFrame_ZeroValueIsEmpty(t *testing.T) {
	var f Frame
	if f.Len() != 0 {
		t.Errorf("Len() = %d, want 0", f.Len())
	}
	if len(f.Entries()) != 0 {
		t.Errorf("Entries() = %v, want empty", f.Entries())
	}
}

func TestFrame_EntriesIsACopy(t *testing.T) {
	f := MustFrame(Entry{Actor: 1, Control: ControlValues{Steer: 0.5}})

	entries := f.Entries()
	entries[0].Actor = 99

	if f.At(0).Actor != 1 {
		t.Errorf("frame mutated through Entries(): actor = %d", f.At(0).Actor)
	}
}

func TestControlValues_Clamp(t *testing.T) {
	tests := []struct {
		name    string
		in      ControlValues
		want    ControlValues
		changed bool
	}{
		{"in range", ControlValues{0.8, 0, 0.1}, ControlValues{0.8, 0, 0.1}, false},
		{"throttle high", ControlValues{1.5, 0, 0}, ControlValues{1, 0, 0}, true},
		{"brake negative", ControlValues{0, -0.2, 0}, ControlValues{0, 0, 0}, true},
		{"steer low", ControlValues{0, 0, -3}, ControlValues{0, 0, -1}, true},
		{"nan steer", ControlValues{0.5, 0, math.NaN()}, ControlValues{0.5, 0, 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := tt.in.Clamp()
			if got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
			if changed != tt.changed {
				t.Errorf("Clamp() changed = %v, want %v", changed, tt.changed)
			}
			if !got.Valid() {
				t.Errorf("clamped value %+v is not Valid()", got)
			}
		})
	}
}

func TestBatch_AddAndSize(t *testing.T) {
	b := NewBatch(7, 2)
	if !b.Empty() {
		t.Fatal("new batch should be empty")
	}

	b.Add(Command{Actor: 1})
	b.Add(Command{Actor: 2})

	if b.Size() != 2 {
		t.Errorf("Size() = %d, want 2", b.Size())
	}
	if b.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", b.Sequence)
	}
	ids := b.Actors()
	if ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Actors() = %v, want [1 2]", ids)
	}
}

func TestNewBatch_UniqueIDs(t *testing.T) {
	a := NewBatch(1, 0)
	b := NewBatch(1, 0)
	if a.ID == b.ID {
		t.Error("two batches share an ID")
	}
}

func TestFailures(t *testing.T) {
	results := []CommandResult{
		{Actor: 1},
		{Actor: 2, Error: "actor not found"},
		{Actor: 3},
	}

	failed := Failures(results)
	if len(failed) != 1 || failed[0].Actor != 2 {
		t.Fatalf("Failures() = %v, want only actor 2", failed)
	}

	err := &SubmitError{Failures: failed}
	if err.Error() != "1 command(s) failed: actor 2: actor not found" {
		t.Errorf("SubmitError.Error() = %q", err.Error())
	}

	if Failures([]CommandResult{{Actor: 1}}) != nil {
		t.Error("Failures() should be nil when nothing failed")
	}
}
