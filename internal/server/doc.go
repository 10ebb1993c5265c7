// Package server provides the MCP server context and the auxiliary HTTP
// servers of meetslot.
//
// # Key Components
//
// ServerContext carries the availability engine, the optional booker and
// preference store, and the instrumentation shared by all MCP tools.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
//
// HealthChecker provides /healthz and /readyz endpoints for Kubernetes probes
// when the MCP server runs over HTTP.
package server
