package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles carried on an account document.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the canonical identity record for an application user.
// The ID is the store's native object id and is used directly as the
// foreign key of every satellite document.
type Account struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email       string             `json:"email" bson:"email"`
	Handle      string             `json:"handle" bson:"handle"`
	Name        string             `json:"name" bson:"name"`
	AvatarURL   string             `json:"avatar_url" bson:"avatar_url"`
	Bio         string             `json:"bio" bson:"bio"`
	SubjectID   string             `json:"-" bson:"subject_id"`
	Role        string             `json:"role" bson:"role"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	LastLoginAt time.Time          `json:"last_login_at" bson:"last_login_at"`
}

// IsAdmin reports whether the account carries the elevated-role flag.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// LegacyAccount is an account document that may still carry the
// embedded-array fields of the pre-split schema. Presence of any
// legacy field means the account has not been migrated yet.
type LegacyAccount struct {
	Account `bson:",inline"`

	Followers      []primitive.ObjectID `bson:"followers,omitempty"`
	Following      []primitive.ObjectID `bson:"following,omitempty"`
	Recipes        []primitive.ObjectID `bson:"recipes,omitempty"`
	FavoriteDishes []primitive.ObjectID `bson:"favorite_dishes,omitempty"`
	CookedDishes   []primitive.ObjectID `bson:"cooked_dishes,omitempty"`
	ViewedDishes   []primitive.ObjectID `bson:"viewed_dishes,omitempty"`
	Notifications  []Notification       `bson:"notifications,omitempty"`
	Reminders      []string             `bson:"reminders,omitempty"`

	// Legacy is set by the adapter from raw key presence, so an empty
	// legacy array still marks the document as unmigrated.
	Legacy bool `bson:"-"`
}

// LegacyFieldNames are the embedded-array fields stripped from the
// account document when it is migrated to the split schema.
var LegacyFieldNames = []string{
	"followers",
	"following",
	"recipes",
	"favorite_dishes",
	"cooked_dishes",
	"viewed_dishes",
	"notifications",
	"reminders",
}

// NeedsMigration reports whether the document still has the legacy
// embedded shape. Absence of every legacy field means "already
// migrated" and is a no-op for the migration engine.
func (a *LegacyAccount) NeedsMigration() bool {
	return a.Legacy
}
