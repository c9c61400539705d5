package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

func TestComputeRank(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name           string
		higher         int
		total          int
		wantRank       int
		wantPercentile int
	}{
		{"first submission for a test", 0, 0, 1, 100},
		{"top of ten earlier submissions", 0, 10, 1, 90},
		{"middle of four earlier submissions", 1, 4, 2, 50},
		{"below all four earlier submissions", 4, 4, 5, 0},
		{"tied scores share a rank", 2, 7, 3, 57},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepository{
				attempts: &stubAttemptRepo{
					submittedHigher: tt.higher,
					submittedByTest: tt.total,
				},
			}
			s := &rankingService{repo: repo, logger: logger}

			rank, percentile, err := s.ComputeRank(context.Background(), 1, 99, 50)
			if err != nil {
				t.Fatalf("ComputeRank() error = %v", err)
			}
			if rank != tt.wantRank {
				t.Errorf("rank = %d, want %d", rank, tt.wantRank)
			}
			if percentile != tt.wantPercentile {
				t.Errorf("percentile = %d, want %d", percentile, tt.wantPercentile)
			}
		})
	}
}

// TestComputeRank_ExcludesOwnRow ranks attempts against a store where the
// attempt's own row is already flipped to submitted, the state ComputeRank
// always sees in production.
func TestComputeRank_ExcludesOwnRow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	store := &stubAttemptRepo{submitted: []*models.Attempt{}}
	repo := &stubRepository{attempts: store}
	s := &rankingService{repo: repo, logger: logger}

	submit := func(t *testing.T, id uint, marks float64) (int, int) {
		t.Helper()
		store.submitted = append(store.submitted, &models.Attempt{
			ID:            id,
			TestID:        1,
			Status:        models.AttemptSubmitted,
			ObtainedMarks: marks,
		})
		rank, percentile, err := s.ComputeRank(context.Background(), 1, id, marks)
		if err != nil {
			t.Fatalf("ComputeRank() error = %v", err)
		}
		return rank, percentile
	}

	t.Run("sole submission", func(t *testing.T) {
		rank, percentile := submit(t, 1, 80)
		if rank != 1 || percentile != 100 {
			t.Errorf("rank, percentile = %d, %d, want 1, 100", rank, percentile)
		}
	})

	t.Run("second submission beats the first", func(t *testing.T) {
		rank, percentile := submit(t, 2, 90)
		if rank != 1 || percentile != 100 {
			t.Errorf("rank, percentile = %d, %d, want 1, 100", rank, percentile)
		}
	})

	t.Run("third submission below both floors at zero", func(t *testing.T) {
		rank, percentile := submit(t, 3, 40)
		if rank != 3 || percentile != 0 {
			t.Errorf("rank, percentile = %d, %d, want 3, 0", rank, percentile)
		}
	})
}
