package testing

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/services"
	"github.com/desertthunder/spotistats/internal/shared"
)

// MockAccessor is a test double for [services.Accessor].
//
// Responses are keyed by call: "collection:<kind>", "playlist:<id>", and the page's next URL for
// Next. Errors uses the same keys plus "artist:<id>", "features:<id>" and "recommendations:<seed>".
// Every call is recorded in Calls in order.
type MockAccessor struct {
	Responses   map[string]models.Record
	Artists     map[string]models.Record
	Features    map[string]models.Record
	Recommended map[string][]models.Record
	Errors      map[string]error
	Calls       []string
}

var _ services.Accessor = (*MockAccessor)(nil)

func (m *MockAccessor) call(key string) error {
	m.Calls = append(m.Calls, key)
	return m.Errors[key]
}

func (m *MockAccessor) response(key string) (models.Record, error) {
	if err := m.call(key); err != nil {
		return nil, err
	}
	rec, ok := m.Responses[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, key)
	}
	return rec, nil
}

func (m *MockAccessor) Collection(ctx context.Context, kind services.Kind, opts services.CollectionOptions) (models.Record, error) {
	return m.response("collection:" + string(kind))
}

func (m *MockAccessor) Next(ctx context.Context, page models.Page) (models.Record, error) {
	return m.response(page.Next)
}

func (m *MockAccessor) PlaylistTracks(ctx context.Context, playlistID string) (models.Record, error) {
	return m.response("playlist:" + playlistID)
}

func (m *MockAccessor) Artist(ctx context.Context, artistID string) (models.Record, error) {
	if err := m.call("artist:" + artistID); err != nil {
		return nil, err
	}
	if a, ok := m.Artists[artistID]; ok {
		return a, nil
	}
	return models.Record{"id": artistID, "genres": []any{}}, nil
}

func (m *MockAccessor) AudioFeatures(ctx context.Context, trackID string) (models.Record, error) {
	if err := m.call("features:" + trackID); err != nil {
		return nil, err
	}
	if f, ok := m.Features[trackID]; ok {
		return f, nil
	}
	return models.Record{"id": trackID, "danceability": 0.5}, nil
}

func (m *MockAccessor) Recommendations(ctx context.Context, seedTrackID string) ([]models.Record, error) {
	if err := m.call("recommendations:" + seedTrackID); err != nil {
		return nil, err
	}
	return m.Recommended[seedTrackID], nil
}

// CallCount counts recorded calls starting with prefix.
func (m *MockAccessor) CallCount(prefix string) int {
	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// MockSink records every table written to it.
type MockSink struct {
	SinkName string
	Err      error
	Written  []string
	Tables   map[string]*models.Table
}

func (s *MockSink) Name() string {
	if s.SinkName == "" {
		return "mock"
	}
	return s.SinkName
}

func (s *MockSink) Write(ctx context.Context, dataset string, table *models.Table) error {
	if s.Err != nil {
		return s.Err
	}
	if s.Tables == nil {
		s.Tables = map[string]*models.Table{}
	}
	s.Written = append(s.Written, dataset)
	s.Tables[dataset] = table
	return nil
}
