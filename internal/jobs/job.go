// Package jobs defines the analysis job record, its status state machine,
// the bounded worker pool that runs jobs, and the stale-job watchdog.
package jobs

import (
	"fmt"
	"time"

	"github.com/tbrennem-source/plancheck/internal/fingerprint"
	"github.com/tbrennem-source/plancheck/internal/types"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusStale      Status = "stale"
	StatusCancelled  Status = "cancelled"
)

// validTransitions maps each status to the statuses it may move to. Terminal
// states have no exits; in particular a stale job never returns to
// processing automatically.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusStale, StatusCancelled},
}

// Terminal reports whether a status has no outgoing transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStale, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is one user-submitted PDF analysis request. The record is written to
// the store before the worker pool ever sees it, so a crash mid-flight
// leaves a durable trace for the watchdog to recover.
type Job struct {
	ID       string
	UserID   string // empty for anonymous uploads
	Filename string
	FileSize int64
	Mode     types.Mode
	Status   Status

	ProgressStage  string
	ProgressDetail string

	ContentHash string
	HashFailed  bool
	Structural  fingerprint.Fingerprint

	PermitNumber    string
	PropertyAddress string

	VersionGroup    string
	VersionNumber   int // 0 until a group is assigned
	ParentJobID     string
	MatchMethod     string
	MatchConfidence float64

	ErrorMessage string

	// PDF holds the upload until the job reaches a terminal state, at which
	// point it is cleared.
	PDF []byte

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Transition moves the job to a new status, enforcing the state machine and
// maintaining timestamps. Reaching a terminal state clears the PDF bytes.
func (j *Job) Transition(to Status) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("invalid job transition %s -> %s", j.Status, to)
	}
	now := time.Now().UTC()
	j.Status = to
	j.UpdatedAt = now
	if to == StatusProcessing {
		j.StartedAt = &now
	}
	if to.Terminal() {
		j.CompletedAt = &now
		j.PDF = nil
	}
	return nil
}

// SetProgress updates the coarse (stage, detail) checkpoint pair. It has no
// effect on transition logic; it exists purely for status polling.
func (j *Job) SetProgress(stage, detail string) {
	j.ProgressStage = stage
	j.ProgressDetail = detail
	j.UpdatedAt = time.Now().UTC()
}

// Ref projects the job into the slice that identity matching needs.
func (j *Job) Ref() fingerprint.JobRef {
	return fingerprint.JobRef{
		ID:              j.ID,
		UserID:          j.UserID,
		Filename:        j.Filename,
		ContentHash:     j.ContentHash,
		PermitNumber:    j.PermitNumber,
		PropertyAddress: j.PropertyAddress,
		VersionGroup:    j.VersionGroup,
		Structural:      j.Structural,
	}
}

// AssignVersion records the job's place in a version chain. VersionNumber
// and VersionGroup are set together or not at all; ParentJobID stays empty
// only for the first version in a group.
func (j *Job) AssignVersion(group string, number int, parentID string) error {
	if group == "" || number < 1 {
		return fmt.Errorf("version assignment needs a group and a 1-based number, got (%q, %d)", group, number)
	}
	if number > 1 && parentID == "" {
		return fmt.Errorf("version %d in group %s needs a parent job", number, group)
	}
	j.VersionGroup = group
	j.VersionNumber = number
	j.ParentJobID = parentID
	j.UpdatedAt = time.Now().UTC()
	return nil
}
