// Package audit implements the append-only trust trail: the business
// audit log, the security event log, and the data access log, plus the
// read side built over them (search with pagination, date-bounded export
// to CSV/JSON/XML/PDF), the encrypted variant for sensitive payloads,
// and the retention manager that owns the only deletion path.
//
// Events are immutable after creation. Writers are serialized per store;
// reads return deep copies and never observe partial state. Nothing in
// the normal write path updates or deletes an event; only the retention
// manager removes entries, and only under an applied policy.
package audit
