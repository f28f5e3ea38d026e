package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"ibc-intranet/internal/core/domain"
)

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templateSources = map[domain.NotificationKind][2]string{
	domain.NotifyInvitation: {
		`You are invited to the intranet`,
		`Hello,

you have been invited to join the intranet as {{ .role | replace "_" " " | title }}.
Register here before {{ dateInZone "02.01.2006 15:04" .expires_at "UTC" }}:

{{ .link }}
`,
	},
	domain.NotifyOverdueReminder: {
		`Reminder: {{ .item }} is overdue`,
		`Hello {{ .name | default "there" }},

you borrowed {{ .quantity }} x {{ .item }} which was due on {{ dateInZone "02.01.2006" .due_at "UTC" }}.
Please return it as soon as possible.
`,
	},
	domain.NotifyCheckoutConfirm: {
		`Checkout confirmed: {{ .item }}`,
		`Hello {{ .name | default "there" }},

you checked out {{ .quantity }} x {{ .item }}{{ with .destination }} for {{ . }}{{ end }}.
Please return it by {{ dateInZone "02.01.2006" .due_at "UTC" }}.
`,
	},
	domain.NotifyApplicationStatus: {
		`Your application for {{ .project }} was {{ .status }}`,
		`Hello {{ .name | default "there" }},

your application for the project "{{ .project }}" is now {{ .status | upper }}.
`,
	},
	domain.NotifyEventSignupConfirm: {
		`Signed up: {{ .event }}`,
		`Hello {{ .name | default "there" }},

thanks for helping with "{{ .task }}" at {{ .event }} on {{ dateInZone "02.01.2006 15:04" .starts_at "UTC" }}.
`,
	},
}

// Templates renders notification subjects and bodies
type Templates struct {
	byKind map[domain.NotificationKind]mailTemplate
}

// NewTemplates parses every notification template
func NewTemplates() (*Templates, error) {
	t := &Templates{byKind: make(map[domain.NotificationKind]mailTemplate, len(templateSources))}
	for kind, src := range templateSources {
		subject, err := template.New(string(kind) + ".subject").Funcs(sprig.TxtFuncMap()).Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", kind, err)
		}
		body, err := template.New(string(kind) + ".body").Funcs(sprig.TxtFuncMap()).Parse(src[1])
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", kind, err)
		}
		t.byKind[kind] = mailTemplate{subject: subject, body: body}
	}
	return t, nil
}

// Render returns subject and plain text body for kind
func (t *Templates) Render(kind domain.NotificationKind, data map[string]any) (string, string, error) {
	tmpl, ok := t.byKind[kind]
	if !ok {
		return "", "", fmt.Errorf("no template for notification %q", kind)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", kind, err)
	}
	return subject.String(), body.String(), nil
}
