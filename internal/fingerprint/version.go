package fingerprint

import (
	"context"
	"fmt"
)

// VersionSource reads the current tail of a version group.
type VersionSource interface {
	// MaxVersionInGroup returns the highest version number in the group and
	// the job holding it. Returns (0, "", nil) for an empty group.
	MaxVersionInGroup(ctx context.Context, groupID string) (int, string, error)
}

// AssignVersion places a job at the end of a version group. An empty group
// seeds version 1 with no parent; otherwise the job is appended after the
// current maximum. Not idempotent: assigning the same job twice appends
// twice, so callers run this exactly once per job.
func AssignVersion(ctx context.Context, source VersionSource, groupID string) (versionNumber int, parentJobID string, err error) {
	maxVersion, tailJobID, err := source.MaxVersionInGroup(ctx, groupID)
	if err != nil {
		return 0, "", fmt.Errorf("read version group %s: %w", groupID, err)
	}
	if maxVersion == 0 {
		return 1, "", nil
	}
	return maxVersion + 1, tailJobID, nil
}
