// Package builtin provides the email, calendar and history-search tools
// the assistant runs against pluggable backend services.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/inboxd/inboxd/pkg/tools"
)

// Draft is an outgoing email, sent or saved.
type Draft struct {
	To      string
	Subject string
	Body    string
}

// EmailMessage is one message in a mail folder.
type EmailMessage struct {
	ID      string
	From    string
	To      string
	Subject string
	Body    string
	Date    string
}

// EmailService is the mailbox backend the email tools run against.
type EmailService interface {
	SendMail(ctx context.Context, d Draft) (id string, err error)
	CreateDraft(ctx context.Context, d Draft) (id string, err error)
	ListMessages(ctx context.Context, folder string, top int) ([]EmailMessage, error)
	GetMessage(ctx context.Context, id string) (*EmailMessage, error)
}

const defaultListTop = 10

// EmailTools returns the leaf tools the email specialist selects from.
// send-mail carries the approval requirement for direct invocation; inside
// a sub-agent the supervisor's manage_email gate already covered it.
func EmailTools(svc EmailService) []tools.Tool {
	return []tools.Tool{
		{
			Name:        "send-mail",
			Description: "Send an email immediately. Args: \"to\", \"subject\", \"body\"",
			Parameters: tools.ObjectSchema(map[string]any{
				"to":      tools.StringParam("Recipient email address"),
				"subject": tools.StringParam("Email subject"),
				"body":    tools.StringParam("Email body text"),
			}),
			RequiresApproval: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				d := draftFromArgs(args)
				if d.To == "" {
					return "", fmt.Errorf("send-mail requires a recipient")
				}
				id, err := svc.SendMail(ctx, d)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Email sent to %s: %q (id %s)", d.To, d.Subject, id), nil
			},
		},
		{
			Name:        "create-draft-email",
			Description: "Create a draft email in the drafts folder without sending. Args: \"to\", \"subject\", \"body\"",
			Parameters: tools.ObjectSchema(map[string]any{
				"to":      tools.StringParam("Recipient email address"),
				"subject": tools.StringParam("Email subject"),
				"body":    tools.StringParam("Email body text"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				d := draftFromArgs(args)
				id, err := svc.CreateDraft(ctx, d)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Draft created for %s: %q (id %s)", d.To, d.Subject, id), nil
			},
		},
		{
			Name:        "list-mail-messages",
			Description: "List messages in a mail folder. Args: \"folder\" (inbox, drafts or sent), optional \"top\"",
			Parameters: tools.Schema(map[string]any{
				"folder": tools.StringParam("Folder name: inbox, drafts or sent"),
				"top":    tools.IntParam("Maximum number of messages to return"),
			}, "folder"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				folder := tools.StringArg(args, "folder")
				if folder == "" {
					folder = "inbox"
				}
				top := tools.IntArg(args, "top", defaultListTop)
				messages, err := svc.ListMessages(ctx, folder, top)
				if err != nil {
					return "", err
				}
				if len(messages) == 0 {
					return fmt.Sprintf("No messages in %s.", folder), nil
				}
				var lines []string
				for i, m := range messages {
					lines = append(lines, fmt.Sprintf("%d. [%s] From: %s, Subject: %s", i+1, m.ID, m.From, m.Subject))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "get-mail-message",
			Description: "Fetch one message by its id. Args: \"id\"",
			Parameters: tools.ObjectSchema(map[string]any{
				"id": tools.StringParam("Message id"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				id := tools.StringArg(args, "id")
				m, err := svc.GetMessage(ctx, id)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\nDate: %s\n\n%s", m.From, m.To, m.Subject, m.Date, m.Body), nil
			},
		},
	}
}

func draftFromArgs(args map[string]any) Draft {
	return Draft{
		To:      tools.StringArg(args, "to"),
		Subject: tools.StringArg(args, "subject"),
		Body:    tools.StringArg(args, "body"),
	}
}
