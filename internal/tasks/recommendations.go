package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotistats/internal/models"
)

// RecommendationSource fetches recommended tracks for a single seed track.
type RecommendationSource interface {
	Recommendations(ctx context.Context, seedTrackID string) ([]models.Record, error)
}

// Recommendations calls source once per seed and concatenates the results in seed order.
// Duplicates across seeds are kept. The first failure aborts with no partial result.
func Recommendations(ctx context.Context, source RecommendationSource, seeds []string) ([]models.Record, error) {
	tracks := []models.Record{}
	for _, seed := range seeds {
		recs, err := source.Recommendations(ctx, seed)
		if err != nil {
			return nil, fmt.Errorf("recommendations for seed %s: %w", seed, err)
		}
		tracks = append(tracks, recs...)
	}
	return tracks, nil
}
