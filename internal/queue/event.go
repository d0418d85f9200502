// Package queue carries notification events over RabbitMQ: the API
// publishes them, the mail consumer renders and sends them.
package queue

// MailQueue is the durable queue holding notification events.
const MailQueue = "mail.notifications"

// MailType selects the mail template.
type MailType string

const (
	MailAccountRegistered MailType = "account.registered"
	MailAccountCreated    MailType = "account.created"
	MailAccountActivated  MailType = "account.activated"
	MailResetPassword     MailType = "password.reset"
)

// MailEvent holds everything a template needs so the consumer never reads
// the database.  Password is only set for accounts created by an ADMIN or
// HOD; Link only for password resets.
type MailEvent struct {
	Type     MailType `json:"type"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	UserName string   `json:"userName"`
	Password string   `json:"password,omitempty"`
	Link     string   `json:"link,omitempty"`
}
