// Package observability provides the Prometheus metric set and logger
// construction shared by the warden components. Metrics register against
// a caller-supplied registry so embedding services keep control of their
// exposition endpoint.
package observability
