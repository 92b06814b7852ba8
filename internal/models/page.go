package models

// Page is one response of a collection endpoint after shape normalization.
type Page struct {
	Items []Record
	Next  string // absolute URL of the following page; empty on the last page
	Total int
}

// HasNext reports whether another page exists.
func (p Page) HasNext() bool {
	return p.Next != ""
}

// Playlist identifies a playlist whose tracks annotate playlist track rows.
type Playlist struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	TrackCount int    `json:"track_count" yaml:"track_count"`
}
