package jobs

import (
	"testing"

	"github.com/tbrennem-source/plancheck/internal/types"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusStale, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusStale, StatusProcessing, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusFailed, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusStale, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestTransitionMaintainsTimestampsAndClearsPDF(t *testing.T) {
	job := &Job{ID: "j1", Status: StatusPending, Mode: types.ModeSample, PDF: []byte("%PDF-1.7")}

	if err := job.Transition(StatusProcessing); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if job.StartedAt == nil {
		t.Error("StartedAt not set on processing")
	}
	if job.PDF == nil {
		t.Error("PDF cleared too early")
	}

	if err := job.Transition(StatusCompleted); err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set on terminal state")
	}
	if job.PDF != nil {
		t.Error("PDF must be cleared at terminal state")
	}

	if err := job.Transition(StatusProcessing); err == nil {
		t.Error("completed job must not transition again")
	}
}

func TestTransitionStaleIsFinal(t *testing.T) {
	job := &Job{ID: "j2", Status: StatusProcessing}
	if err := job.Transition(StatusStale); err != nil {
		t.Fatalf("to stale: %v", err)
	}
	for _, to := range []Status{StatusProcessing, StatusPending, StatusCompleted} {
		if err := job.Transition(to); err == nil {
			t.Errorf("stale -> %s must be rejected", to)
		}
	}
}

func TestAssignVersion(t *testing.T) {
	job := &Job{ID: "j3"}

	if err := job.AssignVersion("", 1, ""); err == nil {
		t.Error("empty group must be rejected")
	}
	if err := job.AssignVersion("g1", 0, ""); err == nil {
		t.Error("version 0 must be rejected")
	}
	if err := job.AssignVersion("g1", 2, ""); err == nil {
		t.Error("version 2 without a parent must be rejected")
	}

	if err := job.AssignVersion("g1", 1, ""); err != nil {
		t.Fatalf("first version: %v", err)
	}
	if job.VersionGroup != "g1" || job.VersionNumber != 1 || job.ParentJobID != "" {
		t.Errorf("job = %+v", job)
	}

	if err := job.AssignVersion("g1", 2, "j2"); err != nil {
		t.Fatalf("second version: %v", err)
	}
	if job.VersionNumber != 2 || job.ParentJobID != "j2" {
		t.Errorf("job = %+v", job)
	}
}
