package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tirtha/live"
	"tirtha/models"
	"tirtha/rdx"
)

const transitionChannel = "transition-events"

// Emit publishes a state transition to Redis. Consumers (notification fanout,
// the relay worker below) replay from the channel; the engine itself never
// sends notifications directly.
func Emit(ctx context.Context, entity, id, from, to, actor string) {
	t := models.Transition{
		Entity: entity,
		ID:     id,
		From:   from,
		To:     to,
		At:     time.Now().Unix(),
		Actor:  actor,
	}

	data, err := json.Marshal(t)
	if err != nil {
		log.Printf("[Emit] Failed to marshal transition: %v", err)
		return
	}

	if err := rdx.Conn.Publish(ctx, transitionChannel, data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish transition to Redis: %v", err)
	}
}

// StartTransitionWorker relays transition events to the live boards: booking
// and slot events go to the date's availability board, incident and resource
// events to the dispatch board.
func StartTransitionWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, transitionChannel)
	ch := sub.Channel()

	log.Println("[TransitionWorker] Listening for transition events...")

	for msg := range ch {
		var t models.Transition
		if err := json.Unmarshal([]byte(msg.Payload), &t); err != nil {
			log.Printf("[TransitionWorker] Failed to parse event: %v", err)
			continue
		}

		switch t.Entity {
		case "incident", "resource":
			live.Broadcast("dispatch", []byte(msg.Payload))
		default:
			live.Broadcast(t.Entity+"s", []byte(msg.Payload))
		}
	}
}
