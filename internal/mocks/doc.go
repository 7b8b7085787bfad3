// Package mocks provides mock implementations of the application's
// interfaces for testing.
//
// MemoryJobStore is a complete in-memory store.JobStore with real
// compare-and-set semantics, suitable for exercising the worker runtime
// and service layer concurrently without a database. The remaining mocks
// follow the function-field pattern: set the Fn field to customize a
// method, or rely on the simple default behavior.
package mocks
