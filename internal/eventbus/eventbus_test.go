package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type delivery struct {
	sessionID string
	message   string
	exclude   string
}

func TestDispatchSkipsOwnEvents(t *testing.T) {
	var got []delivery
	eb := New(nil, func(sessionID string, message []byte, excludeUsername string) {
		got = append(got, delivery{sessionID, string(message), excludeUsername})
	})

	eb.dispatch(WSEvent{OriginMachineID: eb.MachineID(), EventType: eventTypeBroadcast, SessionID: "a", Message: []byte("mine")})
	eb.dispatch(WSEvent{OriginMachineID: "other", EventType: "match_notification", SessionID: "a"})
	eb.dispatch(WSEvent{OriginMachineID: "other", EventType: eventTypeBroadcast, SessionID: "a", Message: []byte("theirs"), ExcludeUsername: "bob"})

	assert.Equal(t, []delivery{{"a", "theirs", "bob"}}, got)
}

func TestLocalOnlyMode(t *testing.T) {
	eb := New(nil, nil)
	assert.Len(t, eb.MachineID(), 16)

	assert.NotPanics(t, func() {
		eb.Start()
		eb.PublishBroadcast("a", []byte("x"), "")
		eb.Stop()
	})
	assert.NoError(t, eb.EnsureIndexes(context.Background()))
}
