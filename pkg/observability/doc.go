/*
Package observability provides ready-made views for monitoring spectate models.

Metrics exports Prometheus counters and a batch size histogram, LogView writes
every batch to a slog.Logger, and Fanout combines several views under a single
registration.
*/
package observability
