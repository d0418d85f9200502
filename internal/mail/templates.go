package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/slms/leave-service/internal/queue"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

const layout = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif">
<h2>{{template "title" .}}</h2>
<p>Hi {{.Name}},</p>
{{template "content" .}}
<p>Regards,<br>SLMS</p>
</body></html>`

func build(subject, title, content string) mailTemplate {
	t := template.Must(template.New("layout").Parse(layout))
	template.Must(t.New("title").Parse(title))
	template.Must(t.New("content").Parse(content))
	return mailTemplate{subject: subject, body: t}
}

var templates = map[queue.MailType]mailTemplate{
	queue.MailAccountRegistered: build("SLMS: Account Registered", "Account Registered",
		`<p>Your account <b>{{.UserName}}</b> has been registered. You will be able to log in once your HOD activates it.</p>`),
	queue.MailAccountCreated: build("SLMS: Account Created", "Account Created",
		`<p>An account has been created for you.</p>
<p>User name: <b>{{.UserName}}</b><br>Password: <b>{{.Password}}</b></p>
<p>Please change your password after the first login.</p>`),
	queue.MailAccountActivated: build("SLMS: Account Activated", "Account Activated",
		`<p>Your account <b>{{.UserName}}</b> is now active. You can log in.</p>`),
	queue.MailResetPassword: build("SLMS: Reset Password", "Reset Password",
		`<p>Use the link below to reset your password. It expires shortly.</p>
<p><a href="{{.Link}}">Reset password</a></p>`),
}

// Render returns the subject and HTML body for ev.
func Render(ev queue.MailEvent) (string, string, error) {
	tpl, ok := templates[ev.Type]
	if !ok {
		return "", "", fmt.Errorf("no template for mail type %q", ev.Type)
	}
	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, ev); err != nil {
		return "", "", err
	}
	return tpl.subject, buf.String(), nil
}
