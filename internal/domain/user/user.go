package user

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultProfileImage is the placeholder every account starts with.
// It is never deleted when a custom image replaces it.
const DefaultProfileImage = "/uploads/default-avatar.png"

type User struct {
	ID           bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Email        string        `json:"email" bson:"email"`
	PasswordHash string        `json:"-" bson:"password"` // never expose hash in JSON
	Name         string        `json:"name" bson:"name"`
	Phone        string        `json:"phone" bson:"phone"`
	ProfileImage string        `json:"profileImage" bson:"profile_image"`
	Role         string        `json:"role" bson:"role"`
	IsActive     bool          `json:"isActive" bson:"is_active"`
	CreatedAt    time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updated_at"`
}

// Summary is the public shape returned by signin and admin listings.
type Summary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	IsAdmin  bool   `json:"isAdmin"`
	IsActive bool   `json:"isActive"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:       u.ID.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		IsAdmin:  u.Role == "admin",
		IsActive: u.IsActive,
	}
}

// Update carries the optional fields of a profile update. Nil means
// "leave unchanged"; the password is already hashed by the caller.
type Update struct {
	Name         *string
	Phone        *string
	PasswordHash *string
	ProfileImage *string
}
