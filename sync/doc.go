// Package sync orchestrates a reconciliation pass over directory groups and
// users: connection verification, field catalog refresh, default mapping
// seeding, mapping validation, choice vocabulary growth, and page-by-page
// record reconciliation with bounded parallelism.
package sync
