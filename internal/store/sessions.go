package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tbrennem-source/plancheck/internal/types"
)

// Session is the analysis payload attached to a completed job: the
// per-page extractions, the spatial annotations, and the rendered result
// document. Extractions are immutable once stored.
type Session struct {
	JobID       string
	Extractions []types.PageExtraction
	Annotations []types.Annotation
	Result      json.RawMessage
	CreatedAt   time.Time
}

// SaveSession upserts a job's session payload.
func (s *Store) SaveSession(ctx context.Context, session *Session) error {
	if session == nil || session.JobID == "" {
		return errors.New("session has no job ID")
	}
	extractions, err := json.Marshal(session.Extractions)
	if err != nil {
		return fmt.Errorf("marshal extractions: %w", err)
	}
	annotations, err := json.Marshal(session.Annotations)
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (job_id, extractions_json, annotations_json, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
		     extractions_json = excluded.extractions_json,
		     annotations_json = excluded.annotations_json,
		     result_json = excluded.result_json`,
		session.JobID,
		string(extractions),
		string(annotations),
		nullableString(string(session.Result)),
		session.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession fetches a job's session payload. Returns (nil, nil) when the
// job has no session yet.
func (s *Store) GetSession(ctx context.Context, jobID string) (*Session, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT job_id, extractions_json, annotations_json, result_json, created_at FROM sessions WHERE job_id = ?`,
		jobID,
	)

	var (
		session     Session
		extractions string
		annotations string
		result      sql.NullString
		createdRaw  string
	)
	if err := row.Scan(&session.JobID, &extractions, &annotations, &result, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if err := json.Unmarshal([]byte(extractions), &session.Extractions); err != nil {
		return nil, fmt.Errorf("decode extractions for %s: %w", jobID, err)
	}
	if err := json.Unmarshal([]byte(annotations), &session.Annotations); err != nil {
		return nil, fmt.Errorf("decode annotations for %s: %w", jobID, err)
	}
	if result.Valid {
		session.Result = json.RawMessage(result.String)
	}
	if t, ok := parseTimeString(createdRaw); ok {
		session.CreatedAt = t
	}
	return &session, nil
}
