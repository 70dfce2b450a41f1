package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inboxd/inboxd/pkg/tools"
)

// Event is one calendar entry.
type Event struct {
	ID        string
	Subject   string
	Start     string
	End       string
	Attendees string
}

// CalendarService is the calendar backend the calendar tools run against.
type CalendarService interface {
	CalendarView(ctx context.Context, start, end string) ([]Event, error)
	ListEvents(ctx context.Context, top int) ([]Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, e Event) (id string, err error)
	UpdateEvent(ctx context.Context, e Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// CalendarTools returns the leaf tools the calendar specialist selects
// from.
func CalendarTools(svc CalendarService) []tools.Tool {
	return []tools.Tool{
		{
			Name:        "get-calendar-view",
			Description: "Get events within a date range. Use for time-based queries like 'this week' or 'today'. Args: \"startDateTime\", \"endDateTime\" (ISO 8601)",
			Parameters: tools.ObjectSchema(map[string]any{
				"startDateTime": tools.StringParam("Range start, ISO 8601 (YYYY-MM-DDTHH:MM:SS)"),
				"endDateTime":   tools.StringParam("Range end, ISO 8601 (YYYY-MM-DDTHH:MM:SS)"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				events, err := svc.CalendarView(ctx, tools.StringArg(args, "startDateTime"), tools.StringArg(args, "endDateTime"))
				if err != nil {
					return "", err
				}
				return renderEvents(events, "No events in that range."), nil
			},
		},
		{
			Name:        "list-calendar-events",
			Description: "List upcoming events without a date filter. Args: optional \"top\"",
			Parameters: tools.Schema(map[string]any{
				"top": tools.IntParam("Maximum number of events to return"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				top := tools.IntArg(args, "top", defaultListTop)
				events, err := svc.ListEvents(ctx, top)
				if err != nil {
					return "", err
				}
				return renderEvents(events, "No upcoming events."), nil
			},
		},
		{
			Name:        "get-calendar-event",
			Description: "Get a specific event by id. Args: \"id\"",
			Parameters: tools.ObjectSchema(map[string]any{
				"id": tools.StringParam("Event id"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				e, err := svc.GetEvent(ctx, tools.StringArg(args, "id"))
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Subject: %s\nStart: %s\nEnd: %s\nAttendees: %s", e.Subject, e.Start, e.End, e.Attendees), nil
			},
		},
		{
			Name:        "create-calendar-event",
			Description: "Create a new calendar event. Args: \"subject\", \"start\" (ISO 8601), optional \"end\", \"attendees\"",
			Parameters: tools.Schema(map[string]any{
				"subject":   tools.StringParam("Event subject"),
				"start":     tools.StringParam("Event start, ISO 8601"),
				"end":       tools.StringParam("Event end, ISO 8601"),
				"attendees": tools.StringParam("Comma-separated attendee addresses"),
			}, "subject", "start"),
			RequiresApproval: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				e := Event{
					Subject:   tools.StringArg(args, "subject"),
					Start:     tools.StringArg(args, "start"),
					End:       tools.StringArg(args, "end"),
					Attendees: tools.StringArg(args, "attendees"),
				}
				id, err := svc.CreateEvent(ctx, e)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Event created: %q at %s (id %s)", e.Subject, e.Start, id), nil
			},
		},
		{
			Name:        "update-calendar-event",
			Description: "Update an existing event. Args: \"id\", optional \"subject\", \"start\", \"end\", \"attendees\"",
			Parameters: tools.Schema(map[string]any{
				"id":        tools.StringParam("Event id"),
				"subject":   tools.StringParam("New subject"),
				"start":     tools.StringParam("New start, ISO 8601"),
				"end":       tools.StringParam("New end, ISO 8601"),
				"attendees": tools.StringParam("New comma-separated attendee addresses"),
			}, "id"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				e := Event{
					ID:        tools.StringArg(args, "id"),
					Subject:   tools.StringArg(args, "subject"),
					Start:     tools.StringArg(args, "start"),
					End:       tools.StringArg(args, "end"),
					Attendees: tools.StringArg(args, "attendees"),
				}
				if err := svc.UpdateEvent(ctx, e); err != nil {
					return "", err
				}
				return fmt.Sprintf("Event %s updated.", e.ID), nil
			},
		},
		{
			Name:        "delete-calendar-event",
			Description: "Delete an event. Args: \"id\"",
			Parameters: tools.ObjectSchema(map[string]any{
				"id": tools.StringParam("Event id"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				id := tools.StringArg(args, "id")
				if err := svc.DeleteEvent(ctx, id); err != nil {
					return "", err
				}
				return fmt.Sprintf("Event %s deleted.", id), nil
			},
		},
	}
}

func renderEvents(events []Event, empty string) string {
	if len(events) == 0 {
		return empty
	}
	var lines []string
	for i, e := range events {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s at %s", i+1, e.ID, e.Subject, e.Start))
	}
	return strings.Join(lines, "\n")
}

var dateKeywords = []string{"today", "tomorrow", "this week", "next week", "week", "this month", "month"}

// DateRangeHint renders the date-range block appended to the calendar
// specialist's instructions when the request mentions a time period.
// Returns "" for requests with no recognizable period.
func DateRangeHint(request string, today time.Time) string {
	lower := strings.ToLower(request)
	matched := false
	for _, kw := range dateKeywords {
		if strings.Contains(lower, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return ""
	}

	start, end := dateRangeFor(lower, today)
	return fmt.Sprintf("\n\nDATE RANGE HINT: For this query, use these dates:\n- startDateTime: %q\n- endDateTime: %q\n", start, end)
}

// dateRangeFor maps a natural-language period onto an ISO 8601 range.
// Weeks run Monday through Sunday; the default covers the next 7 days.
func dateRangeFor(lower string, today time.Time) (string, string) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var start, end time.Time
	switch {
	case strings.Contains(lower, "today"):
		start = day
		end = day.AddDate(0, 0, 1)
	case strings.Contains(lower, "tomorrow"):
		start = day.AddDate(0, 0, 1)
		end = day.AddDate(0, 0, 2)
	case strings.Contains(lower, "next week"):
		start = mondayOf(day).AddDate(0, 0, 7)
		end = start.AddDate(0, 0, 7)
	case strings.Contains(lower, "week"):
		start = mondayOf(day)
		end = start.AddDate(0, 0, 7)
	case strings.Contains(lower, "month"):
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		start = day
		end = day.AddDate(0, 0, 7)
	}

	return start.Format("2006-01-02") + "T00:00:00", end.Format("2006-01-02") + "T23:59:59"
}

func mondayOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
