package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodGoogle   AuthMethod = "google"
)

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username     string             `json:"username" bson:"username"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"passwordHash,omitempty"` // Never send to client
	GoogleID     string             `json:"-" bson:"googleId,omitempty"`     // Never send to client
	AuthMethods  []AuthMethod       `json:"authMethods" bson:"authMethods"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
	LastLoginAt  *time.Time         `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
}

func (u *User) HasAuthMethod(method AuthMethod) bool {
	for _, m := range u.AuthMethods {
		if m == method {
			return true
		}
	}
	return false
}

type RefreshToken struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"userId" bson:"userId"`
	TokenHash  string             `json:"-" bson:"tokenHash"` // Never send to client
	ExpiresAt  time.Time          `json:"expiresAt" bson:"expiresAt"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	IsRevoked  bool               `json:"isRevoked" bson:"isRevoked"`
	DeviceInfo string             `json:"deviceInfo,omitempty" bson:"deviceInfo,omitempty"`
}

type RevokedToken struct {
	TokenHash string    `bson:"tokenHash"`
	ExpiresAt time.Time `bson:"expiresAt"`
}
