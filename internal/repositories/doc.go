// Package repositories provides the SQLite persistence layer.
//
// Two tables back the client's durable state:
//   - credentials: bearer tokens keyed by name, one of the CredentialStore's
//     redundant storage locations
//   - progress_snapshots: last known per-course progress, used as the offline
//     fallback when the progress endpoint is unreachable
package repositories
