// Package store defines the persistence interfaces consumed by the
// service and worker layers, together with the sentinel errors all
// implementations share. Concrete implementations live under
// internal/platform.
package store
