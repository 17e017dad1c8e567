// Package compliance aggregates the audit and security logs into
// periodic reports and tracks externally-reported violations. Report
// generation is a read-only aggregation over log snapshots; it never
// holds a store's write lock for the duration of a scan and never sits
// on the access-decision path.
package compliance
