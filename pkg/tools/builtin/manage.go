package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inboxd/inboxd/pkg/mailstore"
	"github.com/inboxd/inboxd/pkg/model/provider"
	"github.com/inboxd/inboxd/pkg/subagent"
	"github.com/inboxd/inboxd/pkg/tools"
)

const emailSpecialistPrompt = `You are an email specialist.

AVAILABLE TOOLS:
- send-mail: SEND an email immediately
- create-draft-email: Create a DRAFT only (saves to drafts folder)
- list-mail-messages: List emails from a folder
- get-mail-message: Get a specific email by id

RULES:
1. Every tool call MUST include its required arguments.
2. Report EXACTLY what happened - if you drafted, say "draft created", if you sent, say "email sent".`

const calendarSpecialistPrompt = `You are a calendar specialist. Current date: %s

CRITICAL RULES:
1. For "this week", "today", "tomorrow", "this month" queries you MUST use "get-calendar-view" with startDateTime and endDateTime.
2. For general "show my events" or "list meetings" use "list-calendar-events".
3. Dates MUST be ISO 8601: YYYY-MM-DDTHH:MM:SS (e.g. "2026-09-03T00:00:00").`

// ManageEmail is the supervisor-facing email tool. It requires approval
// because the specialist behind it can send mail; the leaf tools run
// without a second gate once the supervisor call was approved.
func ManageEmail(p provider.Provider, svc EmailService) tools.Tool {
	catalog := tools.NewCatalog(EmailTools(svc)...)

	return tools.Tool{
		Name:        "manage_email",
		Description: "Manage emails - send, draft, list or read emails. Args: \"request\" (what to do, in plain language)",
		Parameters: tools.ObjectSchema(map[string]any{
			"request": tools.StringParam("The email task, in plain language"),
		}),
		RequiresApproval: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			request := tools.StringArg(args, "request")
			if request == "" {
				return "", fmt.Errorf("manage_email requires a request")
			}

			prompt := emailSpecialistPrompt
			lower := strings.ToLower(request)
			if strings.Contains(lower, "send") && !strings.Contains(lower, "draft") {
				prompt += "\n\nUSER INTENT: The user wants to SEND the email (not just draft). Use send-mail."
			}

			return subagent.New(p, catalog, prompt).Run(ctx, request)
		},
	}
}

// ManageCalendar is the supervisor-facing calendar tool. Listing meetings
// needs no approval; the event-creating leaf tool is still gated when
// called directly.
func ManageCalendar(p provider.Provider, svc CalendarService) tools.Tool {
	catalog := tools.NewCatalog(CalendarTools(svc)...)

	return tools.Tool{
		Name:        "manage_calendar",
		Description: "Manage the calendar - list events, check availability, view meetings. Args: \"request\" (what to do, in plain language)",
		Parameters: tools.ObjectSchema(map[string]any{
			"request": tools.StringParam("The calendar task, in plain language"),
		}),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			request := tools.StringArg(args, "request")
			if request == "" {
				return "", fmt.Errorf("manage_calendar requires a request")
			}

			now := time.Now().UTC()
			prompt := fmt.Sprintf(calendarSpecialistPrompt, now.Format("2006-01-02"))
			prompt += DateRangeHint(request, now)

			return subagent.New(p, catalog, prompt).Run(ctx, request)
		},
	}
}

// SupervisorCatalog assembles the tool set the top-level selection loop
// chooses from.
func SupervisorCatalog(p provider.Provider, email EmailService, calendar CalendarService, index *mailstore.Index) *tools.Catalog {
	return tools.NewCatalog(
		ManageEmail(p, email),
		ManageCalendar(p, calendar),
		SearchTool(index),
	)
}
