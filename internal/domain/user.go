package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleBoth   = "both"
)

// User is a storefront account. MemoryPeerID links the user to the peer/session
// memory provider; empty until the first chat turn creates the peer.
type User struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Fullname     string    `gorm:"column:fullname;not null" json:"fullname"`
	Role         string    `gorm:"column:role;type:varchar(10);default:'both'" json:"role"`
	MemoryPeerID string    `gorm:"column:memory_peer_id" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
