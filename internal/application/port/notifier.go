package port

import (
	"context"

	"github.com/tallyhq/approvals/internal/domain/entity"
)

// Notifier renders and delivers one notification event. Implementations
// return an error on delivery failure; callers decide whether that failure
// matters (the transition controller never lets it affect a committed
// transition).
type Notifier interface {
	Notify(ctx context.Context, event entity.NotificationEvent) error
}

// EmailSink accepts a rendered message for a single recipient. The SMTP
// mailer is the production implementation; tests substitute a capture.
type EmailSink interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
