package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/templink/internal/messaging"
	"go.uber.org/zap"
)

// NewConsumerGroup wires the typed consumers for both analytics topics into
// a single lifecycle-managed group.
func NewConsumerGroup(subscriber message.Subscriber, store Store, logger *zap.Logger) *messaging.ConsumerGroup {
	group := messaging.NewConsumerGroup(subscriber, logger)

	group.Add(messaging.NewConsumer(subscriber, TopicLinkCreated,
		store.SaveLinkCreated, logger))
	group.Add(messaging.NewConsumer(subscriber, TopicLinkVisited,
		store.SaveLinkVisited, logger))

	return group
}
