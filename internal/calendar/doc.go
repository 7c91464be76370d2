// Package calendar is the Google Calendar provider adapter.
//
// Provider is the narrow surface the scheduling engine consumes: insert an
// event with a chosen conference shape, delete an event, and query busy
// time. Client implements it over google.golang.org/api/calendar/v3 and
// maps API failures onto the sentinel errors in errors.go.
//
// Each call picks a calendar service for the identity it is given: a
// service account for shared calendars, or the participant's own OAuth
// token for delegated ones.
package calendar
