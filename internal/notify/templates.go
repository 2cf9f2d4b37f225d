package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Message kinds.
const (
	KindTicketCreated = "ticket_created"
	KindAdminNew      = "admin_new_ticket"
	KindAssigned      = "ticket_assigned"
	KindStatusChanged = "status_changed"
	KindTicketUpdated = "ticket_updated"
	KindComment       = "comment_added"
	KindAttachment    = "attachment_added"
)

const layout = `{{define "button"}}<p><a href="{{.}}" style="background-color:#3b82f6;color:white;padding:10px 20px;text-decoration:none;border-radius:5px;display:inline-block;">View Ticket</a></p>{{end}}
{{define "details"}}<div style="background-color:#f5f5f5;padding:15px;border-radius:5px;margin:20px 0;">
<p><strong>Ticket ID:</strong> {{shortID .ID}}</p>
<p><strong>Title:</strong> {{.Title}}</p>
<p><strong>Priority:</strong> {{.Priority}}</p>
<p><strong>Status:</strong> {{.Status}}</p>
<p><strong>Category:</strong> {{.Category}}</p>
</div>{{end}}`

var bodies = map[string]string{
	KindTicketCreated: `<h2>Your support ticket has been created</h2>
<p>Hi {{.Recipient.Name}},</p>
<p>Your support ticket has been created and our team will review it shortly.</p>
{{template "details" .Ticket}}
{{template "button" .Link}}
{{if .Guest}}<div style="background-color:#fef3c7;border-left:4px solid #f59e0b;padding:15px;margin:20px 0;"><p style="margin:0;"><strong>Important:</strong> Save this link to check your ticket status anytime. It is unique to you and expires in {{.ExpiryDays}} days.</p></div>{{end}}
<p>You will receive email updates as your ticket progresses.</p>`,

	KindAdminNew: `<h2>New support ticket</h2>
<p>Hi {{.Recipient.Name}},</p>
<p>{{.Actor.Name}} ({{.Actor.Email}}) submitted a new ticket.</p>
{{template "details" .Ticket}}
<p>{{.Ticket.Description}}</p>
{{template "button" .Link}}`,

	KindAssigned: `<h2>A ticket has been assigned to you</h2>
<p>Hi {{.Recipient.Name}},</p>
{{template "details" .Ticket}}
{{template "button" .Link}}`,

	KindStatusChanged: `<h2>Ticket status updated</h2>
<p>Hi {{.Recipient.Name}},</p>
<p>The status of <strong>{{.Ticket.Title}}</strong> changed from <strong>{{.OldStatus}}</strong> to <strong>{{.Ticket.Status}}</strong>.</p>
{{template "button" .Link}}`,

	KindTicketUpdated: `<h2>Ticket updated</h2>
<p>Hi {{.Recipient.Name}},</p>
<p>{{.Actor.Name}} updated <strong>{{.Ticket.Title}}</strong>.</p>
{{template "details" .Ticket}}
{{template "button" .Link}}`,

	KindComment: `<h2>New comment on your ticket</h2>
<p>Hi {{.Recipient.Name}},</p>
<p>{{.Actor.Name}} added a comment to <strong>{{.Ticket.Title}}</strong>.</p>
<div style="background-color:#f5f5f5;padding:15px;border-radius:5px;margin:20px 0;"><p><strong>{{.Actor.Name}}</strong> commented:</p><p>{{.Comment.Content}}</p></div>
{{template "button" .Link}}`,

	KindAttachment: `<h2>New attachment on your ticket</h2>
<p>Hi {{.Recipient.Name}},</p>
<p>{{.Actor.Name}} attached <strong>{{.Attachment.FileName}}</strong> to <strong>{{.Ticket.Title}}</strong>.</p>
{{template "button" .Link}}`,
}

var subjects = map[string]string{
	KindTicketCreated: "Ticket Created: %s",
	KindAdminNew:      "New Support Ticket: %s",
	KindAssigned:      "Ticket Assigned to You: %s",
	KindStatusChanged: "Ticket Status Updated: %s",
	KindTicketUpdated: "Ticket Updated: %s",
	KindComment:       "New Comment on Ticket: %s",
	KindAttachment:    "New Attachment on Ticket: %s",
}

// TemplateData feeds every email kind. Only the fields a kind uses need to be set.
type TemplateData struct {
	Recipient  *domain.User
	Actor      *domain.User
	Ticket     *domain.Ticket
	Comment    *domain.Comment
	Attachment *domain.Attachment
	OldStatus  domain.TicketStatus
	// MagicLink overrides the default ticket URL.
	MagicLink  string
	ExpiryDays int

	Link  string
	Guest bool
}

// Renderer turns TemplateData into messages.
type Renderer struct {
	baseURL   string
	templates map[string]*template.Template
}

// NewRenderer parses every template once.
func NewRenderer(baseURL string) (*Renderer, error) {
	funcs := template.FuncMap{"shortID": shortID}
	r := &Renderer{baseURL: strings.TrimRight(baseURL, "/"), templates: make(map[string]*template.Template, len(bodies))}
	for kind, body := range bodies {
		tmpl, err := template.New(kind).Funcs(funcs).Parse(layout + body)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.templates[kind] = tmpl
	}
	return r, nil
}

// Render builds the message for kind addressed to data.Recipient.
func (r *Renderer) Render(kind string, data TemplateData) (Message, error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown email kind %q", kind)
	}
	if data.Recipient == nil || data.Ticket == nil {
		return Message{}, fmt.Errorf("%s email needs a recipient and a ticket", kind)
	}

	data.Link = data.MagicLink
	if data.Link == "" {
		data.Link = r.baseURL + "/tickets/" + data.Ticket.ID
	}
	data.Guest = data.Recipient.Role == domain.RoleGuest
	if data.ExpiryDays == 0 {
		data.ExpiryDays = 3
	}
	if data.Actor == nil {
		data.Actor = &domain.User{Name: "Someone"}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return Message{
		Kind:    kind,
		To:      data.Recipient.Email,
		Subject: fmt.Sprintf(subjects[kind], data.Ticket.Title),
		HTML:    buf.String(),
	}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
