// Package events provides the event types and handler interfaces that let the
// rescheduling runner announce outcomes without knowing who consumes them.
//
// The primary components are:
// - Event: an envelope carrying a typed JSON payload
// - TaskPayload: the task a missed or escalated event is about
// - EventHandler and EventEmitter: the publish side and the consume side
// - InMemoryEventEmitter: a synchronous in-process fan-out
package events
