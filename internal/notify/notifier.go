package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"bookmarket/internal/events"
	kafkax "bookmarket/internal/kafka"
)

// Notifier stores a notification row and forwards it to the external
// notification sink. Fire and forget: failures are logged, never returned,
// since notifications are not part of the core invariants.
type Notifier struct {
	Repo     *Repo
	Producer *kafkax.Producer
	Service  string
}

func (n *Notifier) Notify(ctx context.Context, userID, title, message, kind string) {
	note := &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.Repo.Insert(ctx, note); err != nil {
		log.Printf("notification insert: %v", err)
		return
	}
	n.publish(note)
}

func (n *Notifier) publish(note *Notification) {
	if n.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:      uuid.NewString(),
		EventType:    events.EventNotificationCreated,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     n.Service,
		Payload: kafkax.MustMarshal(events.NotificationPayload{
			NotificationID: note.ID,
			UserID:         note.UserID,
			Title:          note.Title,
			Message:        note.Message,
			Type:           note.Type,
		}),
	}
	n.Producer.Publish([]byte(note.UserID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventNotificationCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
