package fingerprint

import (
	"context"
	"testing"
)

// fakeSource scopes candidates the way the store query does: only jobs
// belonging to the query's user are ever returned.
type fakeSource struct {
	jobs []JobRef
}

func (f *fakeSource) CandidateJobs(_ context.Context, job JobRef) ([]JobRef, error) {
	var out []JobRef
	for _, c := range f.jobs {
		if c.UserID != job.UserID {
			continue
		}
		sameHash := job.ContentHash != "" && c.ContentHash == job.ContentHash
		samePermit := job.PermitNumber != "" && c.PermitNumber == job.PermitNumber
		sameAddr := job.PropertyAddress != "" && c.PropertyAddress == job.PropertyAddress
		if sameHash || samePermit || sameAddr {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestFindMatchingJob_ContentHashShortCircuits(t *testing.T) {
	src := &fakeSource{jobs: []JobRef{
		{ID: "old", UserID: "u1", ContentHash: "abc", Structural: sheeted(2)},
		{ID: "other", UserID: "u1", ContentHash: "xyz", PermitNumber: "P-1"},
	}}
	m := NewMatcher(src, nil)

	got, err := m.FindMatchingJob(context.Background(), JobRef{
		ID: "new", UserID: "u1", ContentHash: "abc", PermitNumber: "P-1",
		Structural: sheeted(10), // structural would also match; hash wins
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.JobID != "old" || got.Method != MethodContentHash || got.Confidence != 1.0 {
		t.Errorf("got %+v, want content-hash match on job old", got)
	}
}

func TestFindMatchingJob_StructuralPicksBestAboveThreshold(t *testing.T) {
	full := sheeted(10)
	partial := make(Fingerprint, 0, 10)
	partial = append(partial, full[:7]...)

	src := &fakeSource{jobs: []JobRef{
		{ID: "weak", UserID: "u1", PermitNumber: "P-1", Structural: full[:3]},
		{ID: "strong", UserID: "u1", PermitNumber: "P-1", Structural: partial},
	}}
	m := NewMatcher(src, nil)

	got, err := m.FindMatchingJob(context.Background(), JobRef{
		ID: "new", UserID: "u1", PermitNumber: "P-1", Structural: full,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.JobID != "strong" || got.Method != MethodStructural {
		t.Errorf("got %+v, want structural match on job strong", got)
	}
	if got.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", got.Confidence)
	}
}

func TestFindMatchingJob_BelowThresholdIsNoMatch(t *testing.T) {
	full := sheeted(10)
	src := &fakeSource{jobs: []JobRef{
		{ID: "weak", UserID: "u1", PermitNumber: "P-1", Structural: full[:3]},
	}}
	m := NewMatcher(src, nil)

	got, err := m.FindMatchingJob(context.Background(), JobRef{
		ID: "new", UserID: "u1", PermitNumber: "P-1", Structural: full,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want no match below threshold", got)
	}
}

func TestFindMatchingJob_MetadataOnlyWhenNeitherSideHasStructure(t *testing.T) {
	src := &fakeSource{jobs: []JobRef{
		{ID: "prior", UserID: "u1", PermitNumber: "P-9", Filename: "plan-set.pdf"},
	}}
	m := NewMatcher(src, nil)

	got, err := m.FindMatchingJob(context.Background(), JobRef{
		ID: "new", UserID: "u1", PermitNumber: "P-9",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Method != MethodMetadata || got.Confidence != 0.5 {
		t.Errorf("got %+v, want metadata match at confidence 0.5", got)
	}

	// Once the query job has structure, metadata never applies.
	got, err = m.FindMatchingJob(context.Background(), JobRef{
		ID: "new2", UserID: "u1", PermitNumber: "P-9", Structural: sheeted(4),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil when query has structural data", got)
	}
}

func TestFindMatchingJob_NeverCrossesUsers(t *testing.T) {
	src := &fakeSource{jobs: []JobRef{
		{ID: "theirs", UserID: "u2", ContentHash: "abc", PermitNumber: "P-1", PropertyAddress: "123 Main St"},
	}}
	m := NewMatcher(src, nil)

	got, err := m.FindMatchingJob(context.Background(), JobRef{
		ID: "new", UserID: "u1", ContentHash: "abc", PermitNumber: "P-1", PropertyAddress: "123 Main St",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil: matching must never cross users", got)
	}
}

func TestNormalizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Plan-Set_v2.PDF", "plan set v2"},
		{"  my   plans.pdf", "my plans"},
		{"a__b--c.pdf", "a b c"},
	}
	for _, tt := range tests {
		if got := NormalizeFilename(tt.in); got != tt.want {
			t.Errorf("NormalizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMetadataMatch_EmptyNeverMatches(t *testing.T) {
	if MetadataMatch(JobRef{}, JobRef{}) {
		t.Error("two empty refs must not match")
	}
	if MetadataMatch(JobRef{PermitNumber: ""}, JobRef{PermitNumber: ""}) {
		t.Error("empty permit numbers must not match")
	}
}

type fakeVersions struct {
	max   int
	jobID string
}

func (f *fakeVersions) MaxVersionInGroup(context.Context, string) (int, string, error) {
	return f.max, f.jobID, nil
}

func TestAssignVersion(t *testing.T) {
	v, parent, err := AssignVersion(context.Background(), &fakeVersions{}, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 || parent != "" {
		t.Errorf("empty group: v=%d parent=%q, want 1, \"\"", v, parent)
	}

	v, parent, err = AssignVersion(context.Background(), &fakeVersions{max: 3, jobID: "tail"}, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if v != 4 || parent != "tail" {
		t.Errorf("append: v=%d parent=%q, want 4, tail", v, parent)
	}
}
