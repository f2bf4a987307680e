// Package redis forwards delivered batches to Redis.
//
// Publisher is a view; Journal implements ports.Journal on a capped list;
// Locker keeps concurrent journal writers in sequence order.
package redis
