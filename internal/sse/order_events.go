package sse

import (
	"context"
	"sync"

	"ms-pos/internal/models"
)

// ExternalOrderEmitter fans external-order submissions out to connected
// staff clients, keyed by the admin account that owns the menu. Delivery
// is fire-and-forget: with no subscriber the event is dropped, and the
// polling fallback remains the system of record.
type ExternalOrderEmitter struct {
	clients     map[string][]chan models.ExternalOrder
	clientMutex sync.RWMutex
}

func NewExternalOrderEmitter() *ExternalOrderEmitter {
	return &ExternalOrderEmitter{
		clients: make(map[string][]chan models.ExternalOrder),
	}
}

// Subscribe adds a staff client to an admin account's event stream. The
// subscription ends when ctx is done; the channel itself stays open so an
// in-flight Emit can never hit a closed channel.
func (e *ExternalOrderEmitter) Subscribe(ctx context.Context, adminID string) chan models.ExternalOrder {
	clientChan := make(chan models.ExternalOrder, 10)

	e.clientMutex.Lock()
	e.clients[adminID] = append(e.clients[adminID], clientChan)
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(adminID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts an external order to every subscriber of its admin
// account. Each subscriber receives the event independently; observing it
// does not claim the order.
func (e *ExternalOrderEmitter) Emit(ext models.ExternalOrder) {
	e.clientMutex.RLock()
	clients := e.clients[ext.AdminUserID]
	e.clientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send so a slow client never stalls the publisher.
		select {
		case clientChan <- ext:
		default:
		}
	}
}

func (e *ExternalOrderEmitter) removeClient(adminID string, clientChan chan models.ExternalOrder) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	clients := e.clients[adminID]
	for i, ch := range clients {
		if ch == clientChan {
			// Never close the channel: Emit sends outside the lock and may
			// still hold a reference. The abandoned channel is collected
			// once the subscriber's handler returns.
			e.clients[adminID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}

	if len(e.clients[adminID]) == 0 {
		delete(e.clients, adminID)
	}
}

// ClientCount returns the number of staff clients currently subscribed
// for an admin account.
func (e *ExternalOrderEmitter) ClientCount(adminID string) int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients[adminID])
}
