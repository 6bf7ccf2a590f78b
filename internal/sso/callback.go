package sso

import (
	"sync"

	"github.com/fastertools/ftl-sso/internal/logging"
)

// LoginEventType tags a LoginEvent
type LoginEventType int

const (
	EventWaitingForApproval LoginEventType = iota
	EventApproved
	EventFailed
)

func (t LoginEventType) String() string {
	switch t {
	case EventWaitingForApproval:
		return "waiting"
	case EventApproved:
		return "approved"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoginEvent is one LoginCallback notification
type LoginEvent struct {
	Type   LoginEventType
	Prompt ApprovalPrompt
	Err    error
}

// EventChannel is a LoginCallback that delivers events on a channel.
// A device flow produces at most two events, so the default buffer never blocks
// the polling goroutine; events that do not fit are dropped.
type EventChannel struct {
	mu     sync.Mutex
	events chan LoginEvent
	closed bool
}

// NewEventChannel creates an EventChannel with the given buffer size (minimum 2)
func NewEventChannel(buffer int) *EventChannel {
	if buffer < 2 {
		buffer = 2
	}
	return &EventChannel{events: make(chan LoginEvent, buffer)}
}

// Events returns the receive side of the channel
func (c *EventChannel) Events() <-chan LoginEvent {
	return c.events
}

// Close closes the channel; later events are dropped
func (c *EventChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

func (c *EventChannel) send(ev LoginEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		logging.Warn("Login", "Dropping %s event, channel full", ev.Type)
	}
}

func (c *EventChannel) OnWaitingForApproval(prompt ApprovalPrompt) {
	c.send(LoginEvent{Type: EventWaitingForApproval, Prompt: prompt})
}

func (c *EventChannel) OnApproved() {
	c.send(LoginEvent{Type: EventApproved})
}

func (c *EventChannel) OnFailed(err error) {
	c.send(LoginEvent{Type: EventFailed, Err: err})
}

// CallbackFuncs adapts plain functions to LoginCallback; nil funcs are skipped
type CallbackFuncs struct {
	Waiting  func(prompt ApprovalPrompt)
	Approved func()
	Failed   func(err error)
}

func (f CallbackFuncs) OnWaitingForApproval(prompt ApprovalPrompt) {
	if f.Waiting != nil {
		f.Waiting(prompt)
	}
}

func (f CallbackFuncs) OnApproved() {
	if f.Approved != nil {
		f.Approved()
	}
}

func (f CallbackFuncs) OnFailed(err error) {
	if f.Failed != nil {
		f.Failed(err)
	}
}
