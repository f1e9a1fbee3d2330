package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pos/backoffice/internal/domain/ordering"
	"github.com/pos/backoffice/internal/domain/shared"
)

type noopHandler struct{ id int }

func (h *noopHandler) Handle(context.Context, shared.DomainEvent) error { return nil }
func (h *noopHandler) EventTypes() []string                             { return nil }

func TestHandlerRegistry_TypeSpecific(t *testing.T) {
	registry := NewHandlerRegistry()
	a := &noopHandler{id: 1}
	b := &noopHandler{id: 2}

	registry.Register(a, ordering.EventTypePrintCompleted)
	registry.Register(b, ordering.EventTypePrintFailed)

	handlers := registry.GetHandlers(ordering.EventTypePrintCompleted)
	assert.Len(t, handlers, 1)
	assert.Same(t, a, handlers[0])

	assert.Empty(t, registry.GetHandlers(ordering.EventTypeConnectivityChanged))
}

func TestHandlerRegistry_WildcardReceivesEverything(t *testing.T) {
	registry := NewHandlerRegistry()
	wildcard := &noopHandler{id: 1}
	typed := &noopHandler{id: 2}

	registry.Register(wildcard)
	registry.Register(typed, ordering.EventTypePrintCompleted)

	handlers := registry.GetHandlers(ordering.EventTypePrintCompleted)
	assert.Len(t, handlers, 2)
	// Type-specific handlers run before wildcard handlers.
	assert.Same(t, typed, handlers[0])
	assert.Same(t, wildcard, handlers[1])

	assert.Len(t, registry.GetHandlers(ordering.EventTypePrintFailed), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	a := &noopHandler{id: 1}

	registry.Register(a, ordering.EventTypePrintCompleted, ordering.EventTypePrintFailed)
	registry.Register(a)
	registry.Unregister(a)

	assert.Empty(t, registry.GetHandlers(ordering.EventTypePrintCompleted))
	assert.Empty(t, registry.GetHandlers(ordering.EventTypePrintFailed))
}

func TestHandlerRegistry_UnregisterKeepsOthers(t *testing.T) {
	registry := NewHandlerRegistry()
	a := &noopHandler{id: 1}
	b := &noopHandler{id: 2}

	registry.Register(a, ordering.EventTypePrintCompleted)
	registry.Register(b, ordering.EventTypePrintCompleted)
	registry.Unregister(a)

	handlers := registry.GetHandlers(ordering.EventTypePrintCompleted)
	assert.Len(t, handlers, 1)
	assert.Same(t, b, handlers[0])
}
