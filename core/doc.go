// Package core holds the reconciliation and field-mapping engine: the
// domain model bridging directory entities and target-system records, the
// field catalog, mapping validation, value coercion, choice vocabulary
// synchronization, record building, and the status resolver. Orchestration
// lives in the sync package; persistence in store/sql.
package core
