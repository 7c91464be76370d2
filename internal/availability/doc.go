// Package availability computes the meeting slots that every considered owner
// can attend.
//
// An owner's free time on a day is their active weekly windows, minus locally
// recorded blocked intervals, minus the busy intervals reported by their
// calendar. The first two configured owners are intersected; further owners
// are ignored. Free time is then cut into slots of the meeting duration,
// aligned to each free interval's start, and slots overlapping a scheduled
// meeting are dropped.
//
// A calendar that cannot be queried blocks that owner for the whole day. The
// failure is reported as a diagnostic rather than an error, so one outage
// never offers a slot that could be double-booked.
package availability
