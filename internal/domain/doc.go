// Package domain contains the core business entities of the task engine: the
// Task snapshot handed over by the external store, its status and priority
// enumerations, and the validation errors raised when a snapshot breaks one of
// the entity's hard invariants. It has no knowledge of storage or transport.
package domain
