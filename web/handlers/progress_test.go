package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/chronolex/internal/timeline"
)

func TestProgressHubBroadcast(t *testing.T) {
	hub := NewProgressHub()
	defer hub.Stop()

	ch := make(chan []byte, 4)
	require.True(t, hub.subscribe(ch))

	hub.Broadcast(ProgressMessage{Type: "build_progress", Stage: "extracting", Detail: "build-1", Timestamp: time.Now()})

	select {
	case data := <-ch:
		var msg ProgressMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "build_progress", msg.Type)
		assert.Equal(t, "extracting", msg.Stage)
		assert.Equal(t, "build-1", msg.Detail)
	default:
		t.Fatal("no message delivered")
	}
}

func TestProgressHubDropsSlowSubscriber(t *testing.T) {
	hub := NewProgressHub()
	defer hub.Stop()

	full := make(chan []byte) // unbuffered, nobody reading
	require.True(t, hub.subscribe(full))
	healthy := make(chan []byte, 4)
	require.True(t, hub.subscribe(healthy))

	hub.Broadcast(ProgressMessage{Type: "build_progress", Stage: "fusing"})

	// The blocked subscriber is closed rather than stalling the broadcast.
	_, open := <-full
	assert.False(t, open)
	assert.Len(t, healthy, 1)
}

func TestProgressHubStop(t *testing.T) {
	hub := NewProgressHub()
	ch := make(chan []byte, 1)
	require.True(t, hub.subscribe(ch))

	hub.Stop()
	_, open := <-ch
	assert.False(t, open)

	// Stopped hubs reject new subscribers and tolerate repeated Stop.
	assert.False(t, hub.subscribe(make(chan []byte, 1)))
	hub.Stop()
}

func TestProgressHubStageCallback(t *testing.T) {
	hub := NewProgressHub()
	defer hub.Stop()

	ch := make(chan []byte, 8)
	require.True(t, hub.subscribe(ch))

	cb := hub.StageCallback()
	cb("build-7", timeline.StageExtracting)
	cb("build-7", timeline.StageDone)

	require.Len(t, ch, 2)
	var first ProgressMessage
	require.NoError(t, json.Unmarshal(<-ch, &first))
	assert.Equal(t, string(timeline.StageExtracting), first.Stage)
	assert.Equal(t, "build-7", first.Detail)
}
