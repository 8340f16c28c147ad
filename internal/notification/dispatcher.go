package notification

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/application/port"
	"github.com/tallyhq/approvals/internal/domain/entity"
)

// Dispatcher renders notification events into HTML emails and hands them to
// the configured sink. Rendering failures and delivery failures are both
// returned to the caller; the outbox worker owns the retry decision.
type Dispatcher struct {
	sink    port.EmailSink
	baseURL string
	logger  *zap.Logger
}

// NewDispatcher creates a new Dispatcher. baseURL is the externally
// reachable root of the web UI, used to build deep links.
func NewDispatcher(sink port.EmailSink, baseURL string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sink:    sink,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type templateData struct {
	EmployeeName string
	ReportTitle  string
	Period       string
	Reason       string
	Link         string
}

// Notify implements port.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, event entity.NotificationEvent) error {
	subjectFormat, ok := emailSubjects[event.Event]
	if !ok {
		return fmt.Errorf("unknown notification event %q", event.Event)
	}
	subject := fmt.Sprintf(subjectFormat, event.ReportTitle)

	var body bytes.Buffer
	data := templateData{
		EmployeeName: event.EmployeeName,
		ReportTitle:  event.ReportTitle,
		Period:       event.Period,
		Reason:       event.Reason,
		Link:         fmt.Sprintf("%s/reports/%s", d.baseURL, event.Reference),
	}
	if err := emailTemplates.ExecuteTemplate(&body, event.Event, data); err != nil {
		return fmt.Errorf("render %s notification: %w", event.Event, err)
	}

	if err := d.sink.Send(ctx, event.Recipient, subject, body.String()); err != nil {
		d.logger.Error("Notification delivery failed",
			zap.String("event", event.Event),
			zap.Int64("report_id", event.ReportID),
			zap.Error(err))
		return fmt.Errorf("send %s notification: %w", event.Event, err)
	}

	d.logger.Info("Notification sent",
		zap.String("event", event.Event),
		zap.Int64("report_id", event.ReportID),
		zap.String("recipient", event.Recipient))
	return nil
}
