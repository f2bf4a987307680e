// Package middleware wraps a ports.Journal to mask or encrypt batches
// before they are stored.
package middleware
