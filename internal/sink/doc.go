// Package sink delivers finished dataset tables to their destinations.
//
// Every sink implements [tasks.Sink]:
//
//   - [FileSink] writes {dir}/{dataset}.{ext} in json, csv, text or markdown
//   - [SQLiteSink] stores the table as one JSON blob through [repositories.DatasetRepository]
//   - [MongoSink] inserts one document per dataset into a MongoDB collection
//
// Each Write is a whole dataset. Sinks never see partial tables.
//
// [New] builds the configured sinks from [shared.OutputConfig.Sinks].
package sink
