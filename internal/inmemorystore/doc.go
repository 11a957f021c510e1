// Package inmemorystore provides a thread-safe, in-memory implementation
// of the cache.Store interface. Entries live for the lifetime of the process,
// which makes it suitable for single runs, development and tests.
package inmemorystore
