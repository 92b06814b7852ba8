package normalize

import (
	"fmt"

	"github.com/desertthunder/spotistats/internal/models"
)

// FlattenArtists projects artist objects onto [models.ArtistSchema].
func FlattenArtists(artists []models.Record) (*models.Table, error) {
	table := models.NewTable(models.ArtistSchema.Required...)

	for i, artist := range artists {
		row, err := artistRow(artist)
		if err != nil {
			return nil, fmt.Errorf("artist %d: %w", i, err)
		}
		table.Append(row)
	}

	return table, nil
}

func artistRow(artist models.Record) (models.Row, error) {
	row := models.Row{}
	for _, key := range []string{"id", "uri", "type", "name"} {
		v, err := artist.Get(key)
		if err != nil {
			return nil, err
		}
		row[key] = v
	}

	genres, err := artist.Strings("genres")
	if err != nil {
		return nil, err
	}
	row["genres"] = genres

	followers, err := artist.Record("followers")
	if err != nil {
		return nil, err
	}
	total, err := followers.Int("total")
	if err != nil {
		return nil, fmt.Errorf("followers: %w", err)
	}
	row["followers"] = total

	return row, nil
}
