// Package ics renders booked meetings as iCalendar documents.
package ics

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/emersion/go-ical"

	"github.com/teemow/meetsync/internal/model"
)

// ProductID identifies meetsync in the PRODID property.
const ProductID = "-//teemow//meetsync//EN"

// Event is the content of one exported VEVENT.
type Event struct {
	Meeting     model.Meeting
	Summary     string
	Description string
}

// Encode writes a VCALENDAR holding one VEVENT per event. Times are written
// in UTC. DTSTAMP is stamp.
func Encode(w io.Writer, stamp time.Time, events ...Event) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to export")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, e := range events {
		comp, err := component(e, stamp)
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, comp)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func component(e Event, stamp time.Time) (*ical.Component, error) {
	m := e.Meeting
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, m.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, m.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, m.End().UTC())
	event.Props.SetText(ical.PropSummary, e.Summary)
	if e.Description != "" {
		event.Props.SetText(ical.PropDescription, e.Description)
	}
	event.Props.SetText(ical.PropStatus, status(m.Status))

	if m.MeetLink != "" {
		u, err := url.Parse(m.MeetLink)
		if err != nil {
			return nil, fmt.Errorf("invalid meet link of meeting %s: %w", m.ID, err)
		}
		event.Props.SetURI(ical.PropURL, u)
	}
	return event.Component, nil
}

func status(s model.Status) string {
	if s == model.StatusCancelled {
		return "CANCELLED"
	}
	return "CONFIRMED"
}
