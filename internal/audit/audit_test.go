package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/db"
)

func TestLogWritesEvent(t *testing.T) {
	store := db.NewMemoryStore()
	logger := NewLogger(store)
	id := primitive.NewObjectID()

	logger.Log(context.Background(), EventLoginFailed, &id, "alice", Source{IP: "10.0.0.1", UserAgent: "test"}, "bad password")

	events := store.AuditEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventLoginFailed, events[0].EventType)
	assert.Equal(t, "alice", events[0].Username)
	assert.Equal(t, "10.0.0.1", events[0].IP)
	assert.Equal(t, id, *events[0].UserID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestNilLoggerIsNoop(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Log(context.Background(), EventLogout, nil, "", Source{}, "")
	})
}
