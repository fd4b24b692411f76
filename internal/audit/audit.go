package audit

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/db"
	"chess-server/internal/models"
)

// Event types for audit logging
const (
	EventLoginSuccess = "login_success"
	EventLoginFailed  = "login_failed"
	EventRegister     = "register"
	EventLogout       = "logout"
	EventOAuthLogin   = "oauth_login"
)

// Source identifies where a request came from.
type Source struct {
	IP        string
	UserAgent string
}

type Logger struct {
	store db.Store
}

func NewLogger(store db.Store) *Logger {
	return &Logger{store: store}
}

// Log records an event. Failures are logged and never returned so auditing
// can't break a login.
func (l *Logger) Log(ctx context.Context, eventType string, userID *primitive.ObjectID, username string, src Source, details string) {
	if l == nil {
		return
	}
	event := models.AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Username:  username,
		IP:        src.IP,
		UserAgent: src.UserAgent,
		Details:   details,
		CreatedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := l.store.InsertAuditEvent(ctx, &event); err != nil {
		log.Printf("[Audit] write failed: %v", err)
	}
}
