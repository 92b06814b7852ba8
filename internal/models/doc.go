// Package models defines the transient data model shared by every pipeline stage.
//
// # Records
//
// A [Record] is a decoded JSON object exactly as the Spotify Web API returned it.
// Accessors such as [Record.String] and [Record.Record] report a missing key or a
// value of the wrong type as [shared.ErrDataShape], so malformed responses surface
// as errors instead of zero values.
//
// # Pages
//
// A [Page] is one bounded slice of a collection with a continuation URL. An empty
// [Page.Next] marks the final page.
//
// # Tables
//
// A [Table] is the fixed-column output of the normalizer. Its columns are decided by
// a [Schema] (required columns plus conditional columns that only appear when some
// input carried them). Tables are values: [Table.WithColumn] and [Table.Filter]
// return new tables and leave the receiver untouched.
package models
