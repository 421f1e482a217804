package service

import (
	"context"
	"encoding/json"
	"log"

	"ash-assistant-be/internal/pkg/logger"
	"ash-assistant-be/pkg/events"
	pkgNats "ash-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the assistant event bus into the rotated event log.
// Funneling every producer through one subscriber serializes log writes, so
// concurrent sessions never interleave partial lines. Events are optionally
// mirrored to NATS for external observers.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	eventLog  logger.ILogger
	natsPub   *pkgNats.Publisher // nil when NATS is not configured
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	eventLog logger.ILogger,
	natsPub *pkgNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		eventLog:  eventLog,
		natsPub:   natsPub,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload eventEnvelope
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.eventLog.Info("Assistant", payload.Type, payload.Data)

	if cs.natsPub != nil {
		event := events.BaseEvent{Type: payload.Type, Data: payload.Data}
		if err := cs.natsPub.Publish(ctx, event); err != nil {
			log.Printf("[WARN] Failed to mirror event to NATS: %v", err)
		}
	}

	msg.Ack()
}
