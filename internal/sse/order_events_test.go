package sse

import (
	"context"
	"testing"
	"time"

	"ms-pos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitFansOutToAllTenantClients(t *testing.T) {
	emitter := NewExternalOrderEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chanA1 := emitter.Subscribe(ctx, "admin-a")
	chanA2 := emitter.Subscribe(ctx, "admin-a")
	chanB := emitter.Subscribe(ctx, "admin-b")

	emitter.Emit(models.ExternalOrder{ID: "ext-1", AdminUserID: "admin-a"})

	for _, ch := range []chan models.ExternalOrder{chanA1, chanA2} {
		select {
		case got := <-ch:
			assert.Equal(t, "ext-1", got.ID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}

	select {
	case <-chanB:
		t.Fatal("event leaked to another tenant's subscriber")
	default:
	}
}

func TestEmitDropsWhenSubscriberIsFull(t *testing.T) {
	emitter := NewExternalOrderEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := emitter.Subscribe(ctx, "admin-a")

	// More events than the channel buffers; the overflow is dropped
	// without blocking the publisher.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 25; i++ {
			emitter.Emit(models.ExternalOrder{ID: "ext", AdminUserID: "admin-a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}

	assert.Equal(t, cap(ch), len(ch))
}

func TestSubscribeCleanupOnContextCancel(t *testing.T) {
	emitter := NewExternalOrderEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	emitter.Subscribe(ctx, "admin-a")
	require.Equal(t, 1, emitter.ClientCount("admin-a"))

	cancel()

	deadline := time.Now().Add(time.Second)
	for emitter.ClientCount("admin-a") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber was not removed after context cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEmitDuringDisconnectNeverPanics(t *testing.T) {
	emitter := NewExternalOrderEmitter()

	// Clients churning while events are in flight must never trip a send
	// on a dead subscriber.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			ctx, cancel := context.WithCancel(context.Background())
			emitter.Subscribe(ctx, "admin-a")
			cancel()
		}
	}()

	for i := 0; i < 2000; i++ {
		emitter.Emit(models.ExternalOrder{ID: "ext", AdminUserID: "admin-a"})
	}
	<-done

	deadline := time.Now().Add(time.Second)
	for emitter.ClientCount("admin-a") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("churned subscribers were not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEmitWithoutSubscribersIsNoop(t *testing.T) {
	emitter := NewExternalOrderEmitter()
	emitter.Emit(models.ExternalOrder{ID: "ext-1", AdminUserID: "nobody"})
	assert.Equal(t, 0, emitter.ClientCount("nobody"))
}
