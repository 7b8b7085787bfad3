// Package service contains the application's business logic, sitting
// between the HTTP handlers and the store layer. The job service owns
// submission validation, the cancel/retry rules, and the read-side stats
// computation; the worker runtime owns execution.
package service
