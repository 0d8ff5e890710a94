/*
Package observability provides tools for monitoring evaluation sessions.

Both helpers plug into a console through lifecycle hooks: Metrics records
Prometheus counters and histograms, LoggingHooks writes one structured log line
per evaluation and reset. Combine them with LifecycleHooks.Merge.
*/
package observability
