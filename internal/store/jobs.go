package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tbrennem-source/plancheck/internal/fingerprint"
	"github.com/tbrennem-source/plancheck/internal/jobs"
	"github.com/tbrennem-source/plancheck/internal/types"
)

// candidateLimit caps how many prior jobs identity matching considers.
const candidateLimit = 200

var (
	_ fingerprint.CandidateSource = (*Store)(nil)
	_ fingerprint.VersionSource   = (*Store)(nil)
	_ jobs.StaleMarker            = (*Store)(nil)
)

const jobColumns = "id, user_id, filename, file_size, mode, status, progress_stage, progress_detail, content_hash, hash_failed, structural_json, permit_number, property_address, version_group, version_number, parent_job_id, match_method, match_confidence, error_message, pdf, created_at, updated_at, started_at, completed_at"

// CreateJob inserts a new job row. Timestamps are set here if unset.
func (s *Store) CreateJob(ctx context.Context, job *jobs.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job has no ID")
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	structural, err := marshalStructural(job.Structural)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		nullableString(job.UserID),
		job.Filename,
		job.FileSize,
		string(job.Mode),
		string(job.Status),
		nullableString(job.ProgressStage),
		nullableString(job.ProgressDetail),
		nullableString(job.ContentHash),
		boolToInt(job.HashFailed),
		structural,
		nullableString(job.PermitNumber),
		nullableString(job.PropertyAddress),
		nullableString(job.VersionGroup),
		job.VersionNumber,
		nullableString(job.ParentJobID),
		nullableString(job.MatchMethod),
		job.MatchConfidence,
		nullableString(job.ErrorMessage),
		job.PDF,
		job.CreatedAt.Format(time.RFC3339Nano),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job by identifier. Returns (nil, nil) when absent.
func (s *Store) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ErrJobFinalized is returned when an update targets a row already in a
// terminal state. A terminal row never changes again: this is what makes
// cooperative cancellation stick, since a late-arriving worker result
// cannot overwrite a cancelled or stale job.
var ErrJobFinalized = errors.New("job already in a terminal state")

// UpdateJob persists every mutable field of an existing job row. Updates
// against a finalized row return ErrJobFinalized and change nothing.
func (s *Store) UpdateJob(ctx context.Context, job *jobs.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job has no ID")
	}
	job.UpdatedAt = time.Now().UTC()

	structural, err := marshalStructural(job.Structural)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
		 SET status = ?, progress_stage = ?, progress_detail = ?, content_hash = ?,
		     hash_failed = ?, structural_json = ?, permit_number = ?, property_address = ?,
		     version_group = ?, version_number = ?, parent_job_id = ?, match_method = ?,
		     match_confidence = ?, error_message = ?, pdf = ?, updated_at = ?,
		     started_at = ?, completed_at = ?
		 WHERE id = ? AND status NOT IN (?, ?, ?, ?)`,
		string(job.Status),
		nullableString(job.ProgressStage),
		nullableString(job.ProgressDetail),
		nullableString(job.ContentHash),
		boolToInt(job.HashFailed),
		structural,
		nullableString(job.PermitNumber),
		nullableString(job.PropertyAddress),
		nullableString(job.VersionGroup),
		job.VersionNumber,
		nullableString(job.ParentJobID),
		nullableString(job.MatchMethod),
		job.MatchConfidence,
		nullableString(job.ErrorMessage),
		job.PDF,
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		job.ID,
		string(jobs.StatusCompleted),
		string(jobs.StatusFailed),
		string(jobs.StatusStale),
		string(jobs.StatusCancelled),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := s.GetJob(ctx, job.ID)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return fmt.Errorf("update job: no row for %s", job.ID)
		}
		return fmt.Errorf("job %s: %w", job.ID, ErrJobFinalized)
	}
	return nil
}

// ListRecent returns a user's newest jobs, most recent first.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]*jobs.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if userID == "" {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE user_id IS NULL ORDER BY created_at DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
			userID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// CandidateJobs returns completed jobs owned by the same user that share a
// content hash, permit number, or property address with the query job,
// newest first. The scoping lives in the query, so a cross-user match
// cannot exist and unrelated jobs are never scanned. Anonymous jobs get no
// candidates. Empty identity fields compare against NULL columns and never
// match, so a job with no identity data finds nothing.
func (s *Store) CandidateJobs(ctx context.Context, job fingerprint.JobRef) ([]fingerprint.JobRef, error) {
	if job.UserID == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE user_id = ? AND status = ? AND id != ?
		   AND (content_hash = ? OR permit_number = ? OR property_address = ?)
		 ORDER BY created_at DESC LIMIT ?`,
		job.UserID, string(jobs.StatusCompleted), job.ID,
		job.ContentHash, job.PermitNumber, job.PropertyAddress,
		candidateLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("query match candidates: %w", err)
	}
	defer rows.Close()

	var refs []fingerprint.JobRef
	for rows.Next() {
		candidate, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, candidate.Ref())
	}
	return refs, rows.Err()
}

// MaxVersionInGroup returns the highest version number in a version group
// and the ID of the job holding it. Returns (0, "", nil) for an unknown or
// empty group.
func (s *Store) MaxVersionInGroup(ctx context.Context, groupID string) (int, string, error) {
	if groupID == "" {
		return 0, "", nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, version_number FROM jobs WHERE version_group = ? ORDER BY version_number DESC LIMIT 1`,
		groupID,
	)
	var (
		id      string
		version int
	)
	if err := row.Scan(&id, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", nil
		}
		return 0, "", fmt.Errorf("max version in group: %w", err)
	}
	return version, id, nil
}

// MarkStaleProcessing transitions processing jobs last touched before the
// cutoff to stale, clearing their PDF bytes, and reports how many moved.
func (s *Store) MarkStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
		 SET status = ?, error_message = ?, pdf = NULL, completed_at = ?, updated_at = ?
		 WHERE status = ? AND updated_at < ?`,
		string(jobs.StatusStale),
		"job exceeded the processing age limit",
		now,
		now,
		string(jobs.StatusProcessing),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("mark stale jobs: %w", err)
	}
	return res.RowsAffected()
}

func marshalStructural(fp fingerprint.Fingerprint) (any, error) {
	if len(fp) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fp)
	if err != nil {
		return nil, fmt.Errorf("marshal structural fingerprint: %w", err)
	}
	return string(data), nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*jobs.Job, error) {
	var (
		id              string
		userID          sql.NullString
		filename        string
		fileSize        int64
		mode            string
		status          string
		progressStage   sql.NullString
		progressDetail  sql.NullString
		contentHash     sql.NullString
		hashFailed      sql.NullInt64
		structuralJSON  sql.NullString
		permitNumber    sql.NullString
		propertyAddress sql.NullString
		versionGroup    sql.NullString
		versionNumber   sql.NullInt64
		parentJobID     sql.NullString
		matchMethod     sql.NullString
		matchConfidence sql.NullFloat64
		errorMessage    sql.NullString
		pdf             []byte
		createdRaw      string
		updatedRaw      string
		startedRaw      sql.NullString
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&filename,
		&fileSize,
		&mode,
		&status,
		&progressStage,
		&progressDetail,
		&contentHash,
		&hashFailed,
		&structuralJSON,
		&permitNumber,
		&propertyAddress,
		&versionGroup,
		&versionNumber,
		&parentJobID,
		&matchMethod,
		&matchConfidence,
		&errorMessage,
		&pdf,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &jobs.Job{
		ID:              id,
		UserID:          userID.String,
		Filename:        filename,
		FileSize:        fileSize,
		Mode:            types.Mode(mode),
		Status:          jobs.Status(status),
		ProgressStage:   progressStage.String,
		ProgressDetail:  progressDetail.String,
		ContentHash:     contentHash.String,
		HashFailed:      hashFailed.Int64 != 0,
		PermitNumber:    permitNumber.String,
		PropertyAddress: propertyAddress.String,
		VersionGroup:    versionGroup.String,
		VersionNumber:   int(versionNumber.Int64),
		ParentJobID:     parentJobID.String,
		MatchMethod:     matchMethod.String,
		MatchConfidence: matchConfidence.Float64,
		ErrorMessage:    errorMessage.String,
		PDF:             pdf,
	}

	if structuralJSON.Valid && structuralJSON.String != "" {
		if err := json.Unmarshal([]byte(structuralJSON.String), &job.Structural); err != nil {
			return nil, fmt.Errorf("decode structural fingerprint for %s: %w", id, err)
		}
	}
	if t, ok := parseTimeString(createdRaw); ok {
		job.CreatedAt = t
	}
	if t, ok := parseTimeString(updatedRaw); ok {
		job.UpdatedAt = t
	}
	if t, ok := parseTimeString(startedRaw.String); ok {
		job.StartedAt = &t
	}
	if t, ok := parseTimeString(completedRaw.String); ok {
		job.CompletedAt = &t
	}
	return job, nil
}
