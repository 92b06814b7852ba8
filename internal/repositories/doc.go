// Package repositories implements SQLite persistence for dataset snapshots and fetch runs.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Datasets support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [DatasetRepository] : Table snapshots stored as JSON blobs, looked up by id or latest by name
//   - [RunRepository] : Fetch history with status tracking
//
// Sequence numbers provide stable, human-readable ordering (e.g., dataset #42, run #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
