// Package api exposes the prioritization engine over HTTP.
//
// The engine endpoints score, order and evaluate task snapshots supplied in
// the request body. The user endpoints work on stored tasks: they return a
// user's current schedule and queue an on-demand reschedule run. Handlers
// decode and validate requests, call the engine or a service, and map errors
// to status codes with MapErrorToStatusCode; an invalid task snapshot is
// answered with 422 and the offending task ID.
package api
