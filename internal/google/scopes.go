package google

import calendar "google.golang.org/api/calendar/v3"

// CalendarScopes are requested for delegated consent and for the service
// account. Event insertion with conference data needs the full calendar
// scope; calendar.events is listed so consent screens show it explicitly.
var CalendarScopes = []string{
	calendar.CalendarScope,
	calendar.CalendarEventsScope,
}
