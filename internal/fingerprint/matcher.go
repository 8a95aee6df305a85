package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
)

// Match methods, in priority order.
const (
	MethodContentHash = "content_hash"
	MethodStructural  = "structural"
	MethodMetadata    = "metadata"
)

// metadataConfidence is the fixed confidence assigned to a metadata-only
// match. It sits below MatchThreshold: informational, never authoritative.
const metadataConfidence = 0.5

// MatchResult describes the best prior job found for a new upload.
type MatchResult struct {
	Job        JobRef  `json:"-"`
	JobID      string  `json:"job_id"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// CandidateSource supplies same-user completed jobs sharing a content hash,
// permit number, or property address with the query job. Scoping to one
// user happens in the query itself, so cross-user results cannot exist.
type CandidateSource interface {
	CandidateJobs(ctx context.Context, job JobRef) ([]JobRef, error)
}

// Matcher finds the prior version of an uploaded plan set.
type Matcher struct {
	source CandidateSource
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given candidate source.
func NewMatcher(source CandidateSource, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{source: source, logger: logger}
}

// FindMatchingJob applies the three identity layers in priority order:
// an exactly-equal content hash short-circuits; otherwise the candidate with
// the highest structural overlap wins if it reaches the threshold; a
// metadata-only match applies only when neither side has structural data.
// Returns nil when no candidate qualifies; that is not an error, the job
// simply seeds a new version group.
func (m *Matcher) FindMatchingJob(ctx context.Context, job JobRef) (*MatchResult, error) {
	candidates, err := m.source.CandidateJobs(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("load match candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Layer 1: exact content hash.
	if job.ContentHash != "" {
		for _, c := range candidates {
			if c.ContentHash != "" && c.ContentHash == job.ContentHash {
				m.logger.Debug("matched by content hash", "job_id", job.ID, "prior_job_id", c.ID)
				return &MatchResult{Job: c, JobID: c.ID, Method: MethodContentHash, Confidence: 1.0}, nil
			}
		}
	}

	// Layer 2: best structural overlap at or above threshold.
	if len(job.Structural) > 0 {
		var best *JobRef
		bestScore := 0.0
		for i := range candidates {
			c := &candidates[i]
			if len(c.Structural) == 0 {
				continue
			}
			score := OverlapScore(job.Structural, c.Structural)
			if score > bestScore {
				bestScore = score
				best = c
			}
		}
		if best != nil && bestScore >= MatchThreshold {
			m.logger.Debug("matched by structural overlap",
				"job_id", job.ID, "prior_job_id", best.ID, "score", bestScore)
			return &MatchResult{Job: *best, JobID: best.ID, Method: MethodStructural, Confidence: bestScore}, nil
		}
		return nil, nil
	}

	// Layer 3: metadata only, and only when neither side has structure.
	for _, c := range candidates {
		if len(c.Structural) > 0 {
			continue
		}
		if MetadataMatch(job, c) {
			m.logger.Debug("matched by metadata", "job_id", job.ID, "prior_job_id", c.ID)
			return &MatchResult{Job: c, JobID: c.ID, Method: MethodMetadata, Confidence: metadataConfidence}, nil
		}
	}
	return nil, nil
}
