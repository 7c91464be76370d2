// Package meetings runs the lifecycle of a meeting across the manager's and
// the owner's calendars.
//
// DualWriter writes both sides once each, manager first so its Meet link can
// be carried into the owner event. Deleter removes exactly the events
// recorded on a meeting. Manager ties them to the store: booking stores a
// meeting only when at least one calendar accepted it, and status changes
// are compare-and-set so concurrent callers cannot both apply.
package meetings
