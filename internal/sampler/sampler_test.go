package sampler

import (
	"reflect"
	"testing"

	"github.com/tbrennem-source/plancheck/internal/types"
)

func TestSelect_TinyDocumentsReturnEveryPage(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeCompliance, types.ModeSample, types.ModeFull} {
		for total := 0; total <= 2; total++ {
			got := Select(total, mode)
			want := make([]int, total)
			for i := range want {
				want[i] = i
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Select(%d, %s) = %v, want %v", total, mode, got, want)
			}
		}
	}
}

func TestSelect_FullMode(t *testing.T) {
	got := Select(5, types.ModeFull)
	want := []int{0, 1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Select(5, full) = %v, want %v", got, want)
	}
}

func TestSelect_ComplianceMode(t *testing.T) {
	tests := []struct {
		total int
		want  []int
	}{
		{3, []int{0, 1}},
		{4, []int{0, 1, 2}},
		{12, []int{0, 1, 6}},
		{100, []int{0, 1, 50}},
	}
	for _, tt := range tests {
		got := Select(tt.total, types.ModeCompliance)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Select(%d, compliance) = %v, want %v", tt.total, got, tt.want)
		}
	}
}

func TestSelect_SampleMode(t *testing.T) {
	tests := []struct {
		total int
		want  []int
	}{
		{3, []int{0, 1}},
		{5, []int{0, 1, 2, 3}},
		{12, []int{0, 1, 4, 6, 10}},
	}
	for _, tt := range tests {
		got := Select(tt.total, types.ModeSample)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Select(%d, sample) = %v, want %v", tt.total, got, tt.want)
		}
	}
}

func TestSelect_AlwaysAscendingInRangeNoDuplicates(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeCompliance, types.ModeSample, types.ModeFull} {
		for total := 0; total <= 60; total++ {
			got := Select(total, mode)
			seen := make(map[int]bool)
			prev := -1
			for _, p := range got {
				if p < 0 || p >= total {
					t.Fatalf("Select(%d, %s) returned out-of-range index %d", total, mode, p)
				}
				if seen[p] {
					t.Fatalf("Select(%d, %s) returned duplicate index %d", total, mode, p)
				}
				if p <= prev {
					t.Fatalf("Select(%d, %s) not strictly ascending: %v", total, mode, got)
				}
				seen[p] = true
				prev = p
			}
		}
	}
}
