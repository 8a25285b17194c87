package email

import "context"

// Transport is one way of getting an email to a recipient. The delivery
// pipeline holds transports in preference order and fails over between
// them, so adding a transport needs no branching changes.
type Transport interface {
	Name() string
	Send(ctx context.Context, to, subject, htmlBody string) error
}
