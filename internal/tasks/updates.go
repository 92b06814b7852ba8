package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spotistats/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchDataset Phase = iota
	FetchPage
	FetchPlaylist
	SeedRecommendations
	EnrichTracks
	WriteSink
	DatasetDone
	DatasetFailed
)

func (p Phase) String() string {
	switch p {
	case FetchDataset:
		return "fetch_dataset"
	case FetchPage:
		return "fetch_page"
	case FetchPlaylist:
		return "fetch_playlist"
	case SeedRecommendations:
		return "seed_recommendations"
	case EnrichTracks:
		return "enrich_tracks"
	case WriteSink:
		return "write_sink"
	case DatasetDone:
		return "dataset_done"
	case DatasetFailed:
		return "dataset_failed"
	default:
		return ""
	}
}

func datasetStartUpdate(step, total int, ds Dataset) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDataset,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, ds),
	}
}

func pageUpdate(label string, page, items, total int) ProgressUpdate {
	msg := fmt.Sprintf("%s: page %d (%d items)", label, page, items)
	if total > 0 {
		msg = fmt.Sprintf("%s: page %d (%d/%d items)", label, page, items, total)
	}
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    items,
		Total:   total,
		Message: msg,
	}
}

func playlistUpdate(step, total int, pl models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Playlist: %s (%d tracks)", step, total, pl.Name, pl.TrackCount),
		Data:    pl,
	}
}

func seedsUpdate(seeds []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SeedRecommendations,
		Step:    len(seeds),
		Total:   len(seeds),
		Message: fmt.Sprintf("Seeding recommendations from %s", strings.Join(seeds, ", ")),
		Data:    seeds,
	}
}

func enrichUpdate(ds Dataset, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichTracks,
		Step:    0,
		Total:   rows,
		Message: fmt.Sprintf("Enriching %s (%d rows)...", ds, rows),
	}
}

func writeSinkUpdate(step, total int, ds Dataset, sink string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteSink,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Writing %s to %s...", ds, sink),
	}
}

func datasetDoneUpdate(step, total int, ds Dataset, table *models.Table) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DatasetDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d rows)", step, total, ds, table.Len()),
		Data:    table,
	}
}

func datasetFailedUpdate(step, total int, ds Dataset, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DatasetFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, ds, err),
	}
}
