package base

import (
	evbus "github.com/asaskevich/EventBus"
)

// Event topics published by sockets and server connections
const (
	topicConnect    = "connect"
	topicClose      = "close"
	topicError      = "error"
	topicMessage    = "message"
	topicConnection = "connection"
)

// eventBus dispatches socket events to any number of handlers per topic.
//
// Handlers run synchronously on the publishing goroutine while the bus is locked:
// a handler must not register new handlers on the same bus.
type eventBus struct {
	bus evbus.Bus
}

func newEventBus() *eventBus {
	return &eventBus{bus: evbus.New()}
}

func (e *eventBus) subscribe(topic string, handler interface{}) {
	if handler == nil {
		return
	}
	if err := e.bus.Subscribe(topic, handler); err != nil {
		Logger.Errorf("Failed to subscribe to %s events: %v", topic, err)
	}
}

func (e *eventBus) publish(topic string, args ...interface{}) {
	e.bus.Publish(topic, args...)
}

func (e *eventBus) hasHandler(topic string) bool {
	return e.bus.HasCallback(topic)
}

// publishError hands err to the error handlers, errors without a handler are logged
func (e *eventBus) publishError(err error) {
	if err == nil {
		return
	}
	if !e.bus.HasCallback(topicError) {
		Logger.Errorf("Unhandled socket error: %v", err)
		return
	}
	e.bus.Publish(topicError, err)
}
