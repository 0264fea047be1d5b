package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null"  json:"username"`
	PasswordHash string    `gorm:"not null"                      json:"-"`
	Role         Role      `gorm:"size:16;not null;default:employee" json:"role"`
	IsActive     bool      `gorm:"not null;default:true"         json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelStatus is the lifecycle state of a channel. Deleted rows are kept.
type ChannelStatus string

const (
	ChannelActive  ChannelStatus = "active"
	ChannelDeleted ChannelStatus = "deleted"
)

type Channel struct {
	ID                uint          `gorm:"primaryKey;autoIncrement"             json:"id"`
	UUID              string        `gorm:"column:uuid;size:36;uniqueIndex;not null" json:"uuid"`
	Name              string        `gorm:"not null"                             json:"name"`
	Subscribers       int           `gorm:"not null;default:0"                   json:"subscribers"`
	Logo              string        `gorm:"not null"                             json:"logo"`
	InviteLink        string        `gorm:"not null"                             json:"inviteLink"`
	Description       *string       `json:"description"`
	CustomPixelID     *string       `json:"customPixelId"`
	CustomAccessToken *string       `json:"customAccessToken"`
	UserID            uint          `gorm:"index;not null"                       json:"userId"`
	Status            ChannelStatus `gorm:"size:16;index;not null;default:active" json:"status"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// HasCustomPixel reports whether both per-channel credentials are set.
func (c *Channel) HasCustomPixel() bool {
	return c.CustomPixelID != nil && *c.CustomPixelID != "" &&
		c.CustomAccessToken != nil && *c.CustomAccessToken != ""
}

// Active limits a query to channels that have not been soft-deleted.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", ChannelActive)
}

type PixelSettings struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null"     json:"userId"`
	PixelID     string    `gorm:"not null"                 json:"pixelId"`
	AccessToken string    `gorm:"not null"                 json:"accessToken"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Session struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	IP        string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:512"`
	CreatedAt time.Time
}

func Tables() []any {
	return []any{&User{}, &Channel{}, &PixelSettings{}, &Session{}}
}
