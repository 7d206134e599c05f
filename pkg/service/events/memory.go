package events

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
)

// Memory is an in-process AuthEventBus. Handlers are invoked on the
// publishing goroutine after the lock is released.
type Memory struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(*model.AuthEvent)
	closed   bool
}

var _ interfaces.AuthEventBus = (*Memory)(nil)

// NewMemory creates an in-process event bus
func NewMemory() *Memory {
	return &Memory{
		handlers: make(map[int]func(*model.AuthEvent)),
	}
}

// Publish delivers event to every current subscriber
func (m *Memory) Publish(ctx context.Context, event *model.AuthEvent) error {
	if event == nil {
		return goerr.New("event is nil")
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return goerr.New("event bus is closed")
	}
	handlers := make([]func(*model.AuthEvent), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		e := *event
		h(&e)
	}
	return nil
}

// Subscribe registers handler until the returned function is called
func (m *Memory) Subscribe(ctx context.Context, handler func(*model.AuthEvent)) (func(), error) {
	if handler == nil {
		return nil, goerr.New("handler is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, goerr.New("event bus is closed")
	}

	id := m.nextID
	m.nextID++
	m.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.handlers, id)
		})
	}, nil
}

// Subscribers returns the number of registered handlers
func (m *Memory) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

// Close drops every subscriber
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.handlers = make(map[int]func(*model.AuthEvent))
	return nil
}
