package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andreamil/hubspot-integration/internal/models"
	"github.com/andreamil/hubspot-integration/internal/state"
	"github.com/tidwall/gjson"
)

// Subscription types this service handles. Anything else is logged and
// skipped.
const (
	subContactCreation       = "contact.creation"
	subContactPropertyChange = "contact.propertyChange"
)

// ParseEvents decodes a webhook delivery body into events. HubSpot sends
// a JSON array; unknown fields are ignored rather than rejected, since
// HubSpot adds fields without notice.
func ParseEvents(body []byte) ([]models.WebhookEvent, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("webhook body is not valid JSON")
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("webhook body is not a JSON array")
	}

	var events []models.WebhookEvent

	parsed.ForEach(func(_, item gjson.Result) bool {
		events = append(events, models.WebhookEvent{
			ObjectID:         item.Get("objectId").Int(),
			SubscriptionType: item.Get("subscriptionType").Str,
			PortalID:         item.Get("portalId").Int(),
			OccurredAt:       item.Get("occurredAt").Int(),
			PropertyName:     item.Get("propertyName").Str,
			PropertyValue:    item.Get("propertyValue").Str,
		})

		return true
	})

	return events, nil
}

// Processor dispatches verified webhook events. A per-event failure is
// logged and skipped; one bad event never blocks the rest of a delivery.
type Processor struct {
	journal *state.Journal
	logger  *slog.Logger
}

// NewProcessor creates an event processor. journal may be nil, in which
// case redelivered events are processed again.
func NewProcessor(journal *state.Journal, logger *slog.Logger) *Processor {
	return &Processor{journal: journal, logger: logger}
}

// Process handles a batch of events from one verified delivery.
func (p *Processor) Process(ctx context.Context, events []models.WebhookEvent) {
	if len(events) == 0 {
		p.logger.Warn("empty webhook event list received")
		return
	}

	p.logger.Info("processing webhook events", slog.Int("count", len(events)))

	for _, ev := range events {
		if ctx.Err() != nil {
			p.logger.Warn("webhook processing interrupted", slog.Int("remaining", len(events)))
			return
		}

		if p.journal != nil {
			first, err := p.journal.MarkProcessed(ev)
			if err != nil {
				p.logger.Error("journal write failed, processing event anyway",
					slog.Int64("object_id", ev.ObjectID),
					slog.String("error", err.Error()),
				)
			} else if !first {
				p.logger.Info("skipping redelivered event",
					slog.Int64("object_id", ev.ObjectID),
					slog.String("type", ev.SubscriptionType),
				)

				continue
			}
		}

		p.dispatch(ev)
	}
}

func (p *Processor) dispatch(ev models.WebhookEvent) {
	switch {
	case strings.EqualFold(ev.SubscriptionType, subContactCreation):
		p.logger.Info("contact created",
			slog.Int64("object_id", ev.ObjectID),
			slog.Int64("portal_id", ev.PortalID),
		)
	case strings.EqualFold(ev.SubscriptionType, subContactPropertyChange):
		p.logger.Info("contact property changed",
			slog.Int64("object_id", ev.ObjectID),
			slog.String("property", ev.PropertyName),
			slog.String("value", ev.PropertyValue),
		)
	default:
		p.logger.Warn("unhandled webhook event type",
			slog.String("type", ev.SubscriptionType),
		)
	}
}
