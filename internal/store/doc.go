// Package store defines interfaces for task persistence. These interfaces
// abstract the underlying storage from the engine and the services, so the
// scheduling rules stay independent of any database technology.
package store
