package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/fhecity/internal/testutil"
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub(CityTopic, testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub)
	require.True(t, hub.Register(client))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(formatSSEMessage("player_joined", "", "alice"))

	select {
	case msg := <-client.send:
		assert.Equal(t, "event: player_joined\ndata: alice\n\n", string(msg))
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(CityTopic, testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub)
	require.True(t, hub.Register(client))

	hub.Unregister(client)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.send
	assert.False(t, ok, "send channel should be closed")
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := NewHub(CityTopic, testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	clients := []*Client{NewClient(hub), NewClient(hub), NewClient(hub)}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(formatSSEMessage("update", "7", "data"))

	for i, c := range clients {
		select {
		case msg := <-c.send:
			assert.Equal(t, "event: update\nid: 7\ndata: data\n\n", string(msg), "client %d", i)
		case <-time.After(time.Second):
			t.Fatalf("client %d did not receive message", i)
		}
	}
}

func TestHub_RegisterAfterCloseFails(t *testing.T) {
	hub := NewHub(CityTopic, testutil.NopLogger())
	hub.Close()
	hub.Close()

	assert.False(t, hub.Register(NewClient(hub)))
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	assert.Nil(t, manager.GetHub(CityTopic))

	hub := manager.GetOrCreateHub(CityTopic)
	require.NotNil(t, hub)
	assert.Same(t, hub, manager.GetOrCreateHub(CityTopic))
	assert.Same(t, hub, manager.GetHub(CityTopic))
	assert.NotSame(t, hub, manager.GetOrCreateHub(PlayerTopic("alice")))
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	manager.GetOrCreateHub(CityTopic)
	manager.GetOrCreateHub(PlayerTopic("alice"))
	busy := manager.GetOrCreateHub(PlayerTopic("bob"))
	require.True(t, busy.Register(NewClient(busy)))
	require.Eventually(t, func() bool { return busy.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, manager.CleanupEmptyHubs())
	assert.NotNil(t, manager.GetHub(CityTopic))
	assert.Nil(t, manager.GetHub(PlayerTopic("alice")))
	assert.NotNil(t, manager.GetHub(PlayerTopic("bob")))
}

func TestHub_DisconnectsLaggingClient(t *testing.T) {
	hub := NewHub(CityTopic, testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	slow := &Client{id: "slow", hub: hub, send: make(chan []byte, 1), connectedAt: time.Now()}
	require.True(t, hub.Register(slow))

	hub.Broadcast([]byte("first"))
	hub.Broadcast([]byte("second"))

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "first", string(<-slow.send))
	_, ok := <-slow.send
	assert.False(t, ok, "lagging client should be disconnected")

	// Leaving after eviction is harmless
	hub.Unregister(slow)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(PlayerTopic("alice"), testutil.NopLogger())
	go hub.Run()

	client := NewClient(hub)
	require.True(t, hub.Register(client))
	assert.Equal(t, PlayerTopic("alice"), hub.Topic())

	hub.Close()

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client was not disconnected")
	}
}

func TestHubManager_SubscribeReplacesHubClosedByCleanup(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	topic := PlayerTopic("p_x")
	stale := manager.GetOrCreateHub(topic)
	require.Equal(t, 1, manager.CleanupEmptyHubs())
	require.False(t, stale.Register(NewClient(stale)))

	client, ok := manager.Subscribe(topic)
	require.True(t, ok)
	assert.NotSame(t, stale, client.hub)
	assert.Same(t, client.hub, manager.GetHub(topic))
	assert.Eventually(t, func() bool { return client.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubManager_SubscribeReplacesClosedHubStillMapped(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	stale := manager.GetOrCreateHub(CityTopic)
	stale.Close()

	client, ok := manager.Subscribe(CityTopic)
	require.True(t, ok)
	assert.NotSame(t, stale, client.hub)
}

func TestHubManager_SubscribeAfterCloseFails(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	manager.Close()

	_, ok := manager.Subscribe(CityTopic)
	assert.False(t, ok)
	assert.Nil(t, manager.GetOrCreateHub(CityTopic))
}
