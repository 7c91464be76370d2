package meetings

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/meetsync/internal/availability"
	"github.com/teemow/meetsync/internal/model"
)

// Description is the event body shared by both calendars.
func Description(managerName, ownerNames, department string) string {
	return fmt.Sprintf("Созвон раз в две недели\nРуководитель: %s\nВладелец: %s\nОтдел: %s\n\nВстреча создана автоматически.",
		managerName, ownerNames, department)
}

const slotLayout = "Mon 02 Jan 2006 15:04"

func warnings(r DualResult) []string {
	var out []string
	switch {
	case r.Manager.Success && r.Owner.failed():
		out = append(out, "only the manager calendar was updated, the owner calendar could not be written")
	case r.Owner.Success && r.Manager.failed():
		out = append(out, "only the owner calendar was updated, the manager calendar could not be written")
	}
	if r.MeetLink() == "" {
		out = append(out, "no video link was attached")
	}
	if r.Manager.AttendeeDropped || r.Owner.AttendeeDropped {
		out = append(out, "some attendees were not invited")
	}
	return out
}

func failureReason(r DualResult) string {
	var parts []string
	for _, s := range []SideResult{r.Manager, r.Owner} {
		switch {
		case s.Skipped:
			parts = append(parts, fmt.Sprintf("%s side has no calendar", s.Side))
		case s.Err != nil:
			parts = append(parts, fmt.Sprintf("%s side: %v", s.Side, s.Err))
		}
	}
	if len(parts) == 0 {
		return "no calendar was written"
	}
	return strings.Join(parts, "; ")
}

// Message is the confirmation shown to the booking manager.
func (b *Booking) Message(loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Meeting booked for %s (%s).\n", b.Meeting.Start.In(loc).Format(slotLayout), loc)

	r := b.Result
	switch {
	case r.Manager.Success && r.Owner.Success:
		sb.WriteString("Both calendars were updated.\n")
	case r.Manager.Success && r.Owner.Skipped:
		sb.WriteString("The meeting was added to the shared calendar.\n")
	case r.Manager.Success:
		sb.WriteString("Only the manager calendar was updated; the owner calendar could not be written.\n")
	default:
		sb.WriteString("Only the owner calendar was updated; the manager calendar could not be written.\n")
	}

	if b.Meeting.MeetLink != "" {
		fmt.Fprintf(&sb, "Video link: %s\n", b.Meeting.MeetLink)
	} else {
		sb.WriteString("No video link was attached.\n")
	}
	if r.Manager.AttendeeDropped || r.Owner.AttendeeDropped {
		sb.WriteString("Some attendees were not invited.\n")
	}
	fmt.Fprintf(&sb, "Meeting ID: %s", b.Meeting.ID)
	return sb.String()
}

// Message is the confirmation shown after a cancellation.
func (r CancelResult) Message() string {
	if !r.OK {
		return "Meeting was not cancelled."
	}
	switch {
	case len(r.Delete.Attempts) == 0:
		return "Meeting cancelled. No calendar events were recorded for it."
	case r.RemoteCleanupIncomplete:
		return "Meeting cancelled. Some calendar events could not be removed and need manual cleanup."
	default:
		return "Meeting cancelled. All calendar events were removed."
	}
}

const dayLayout = "Mon 02 Jan 2006"

// FormatSlots renders a slot list grouped by day, followed by any
// diagnostics.
func FormatSlots(res availability.Result, loc *time.Location) string {
	var sb strings.Builder
	if len(res.Slots) == 0 {
		sb.WriteString("No free slots in the requested range.\n")
	} else {
		fmt.Fprintf(&sb, "Available slots (%s):\n", loc)
		day := ""
		for _, s := range res.Slots {
			start := s.Start.In(loc)
			if d := start.Format(dayLayout); d != day {
				day = d
				fmt.Fprintf(&sb, "\n%s\n", day)
			}
			fmt.Fprintf(&sb, "  %s-%s  start=%s\n", start.Format("15:04"), s.End.In(loc).Format("15:04"), start.Format(time.RFC3339))
		}
	}
	if len(res.Diagnostics) > 0 {
		sb.WriteString("\nNotes:\n")
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&sb, "  - %s\n", d)
		}
	}
	return sb.String()
}

// FormatMeeting renders one meeting on a single line.
func FormatMeeting(m model.Meeting, loc *time.Location) string {
	line := fmt.Sprintf("%s  %s  %s  manager=%s", m.ID, m.Start.In(loc).Format(slotLayout), m.Status, m.ManagerID)
	if m.MeetLink != "" {
		line += "  " + m.MeetLink
	}
	return line
}
