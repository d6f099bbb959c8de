// Package reschedule runs the rescheduling engine in the background.
//
// A Runner sweeps every user with overdue tasks on a fixed interval and also
// accepts on-demand triggers for a single user. Triggers go through a
// coalescing queue drained by a small set of workers; a keyed lock keeps at
// most one run per user in flight, whichever path started it.
package reschedule
