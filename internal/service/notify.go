package service

import (
	"context"

	"storefront-admin/internal/events"

	"github.com/sirupsen/logrus"
)

// publishEvent is fire-and-forget: the write has already committed, so a
// broker outage only costs subscribers a notification.
func publishEvent(ctx context.Context, pub events.Publisher, log *logrus.Logger, eventType events.EventType, entityID, actorID string, payload interface{}) {
	if pub == nil {
		return
	}
	evt, err := events.NewEvent(ctx, eventType, entityID, actorID, payload)
	if err == nil {
		err = pub.Publish(ctx, evt)
	}
	if err != nil && log != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"event":     eventType,
			"entity_id": entityID,
		}).Warn("event publish failed")
	}
}
