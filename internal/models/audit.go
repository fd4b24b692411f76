package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditEvent is a security-relevant event such as a login or logout.
type AuditEvent struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	EventType string              `json:"eventType" bson:"eventType"`
	UserID    *primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`
	Username  string              `json:"username,omitempty" bson:"username,omitempty"`
	IP        string              `json:"ip" bson:"ip"`
	UserAgent string              `json:"userAgent" bson:"userAgent"`
	Details   string              `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
}
