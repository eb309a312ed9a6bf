// Package engine spawns and owns the messaging actors. Each actor processes
// one message at a time, which gives every handler run-to-completion
// semantics without explicit locking around the store calls it makes.
package engine

import (
	"log/slog"

	"ripple-social/internal/database"
	"ripple-social/internal/directory"
	"ripple-social/internal/engine/actors"
	"ripple-social/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Dependencies carries everything the actors need. Publisher may be nil to
// disable realtime push (tests); Metrics may be nil as well.
type Dependencies struct {
	Store     database.MessageStore
	Resolver  directory.Resolver
	Publisher actors.Publisher
	Metrics   *utils.MetricsCollector
	Logger    *slog.Logger
}

// Engine holds the actor PIDs the handlers talk to.
type Engine struct {
	messageActor      *actor.PID
	conversationActor *actor.PID
}

func NewEngine(system *actor.ActorSystem, deps Dependencies) *Engine {
	context := system.Root

	messageProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewMessageActor(deps.Store, deps.Resolver, deps.Publisher, deps.Metrics, deps.Logger)
	})
	messagePID := context.Spawn(messageProps)

	conversationProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewConversationActor(deps.Store, deps.Resolver, deps.Logger)
	})
	conversationPID := context.Spawn(conversationProps)

	return &Engine{
		messageActor:      messagePID,
		conversationActor: conversationPID,
	}
}

// GetMessageActor returns the PID of the message actor.
func (e *Engine) GetMessageActor() *actor.PID {
	return e.messageActor
}

// GetConversationActor returns the PID of the conversation actor.
func (e *Engine) GetConversationActor() *actor.PID {
	return e.conversationActor
}
