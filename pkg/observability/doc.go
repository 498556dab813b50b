/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log records.

Metrics are registered on their own registry, so several engines (or tests)
can coexist in one process. Use Merge to combine the metric hooks with other
hooks before passing them to recalc.WithLifecycleHooks.
*/
package observability
