/*
Package observability turns engine hooks into logs and Prometheus metrics.

Hooks are plain callback bundles (domain.Hooks). Metrics and LogHooks each build one,
and Chain fans a single bundle out to several of them.
*/
package observability
