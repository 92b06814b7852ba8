// Package web serves stored datasets and run history as a read-only JSON API.
//
// Routes
//
//	GET /health                  → {"status": "ok"}
//	GET /datasets                → dataset summaries, newest first (?name=, ?run_id=)
//	GET /datasets/:id            → one dataset with its table (?format=csv|text|markdown renders the table)
//	GET /names                   → distinct dataset names
//	GET /names/:name/latest      → newest dataset with that name
//	GET /runs                    → recent runs (?limit=)
//	GET /runs/:id                → one run
//
// Errors are returned as {"error": "..."} with 400 for bad input, 404 for unknown ids and 500 otherwise.
package web
