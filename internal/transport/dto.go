package transport

import (
	"time"

	"github.com/Skotchmaster/tg_landing/internal/models"
)

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=128"`
}

type RoleRequest struct {
	Role string `json:"role" form:"role" validate:"required,oneof=admin employee"`
}

type PixelSettingsRequest struct {
	PixelID     string `json:"pixelId"     form:"pixelId"     validate:"required,max=64"`
	AccessToken string `json:"accessToken" form:"accessToken" validate:"required"`
}

type CreateChannelRequest struct {
	Name              string `form:"name"              validate:"required,max=255"`
	Subscribers       int    `form:"subscribers"       validate:"gte=0"`
	InviteLink        string `form:"inviteLink"        validate:"required,url"`
	Description       string `form:"description"`
	CustomPixelID     string `form:"customPixelId"     validate:"max=64"`
	CustomAccessToken string `form:"customAccessToken"`
}

// PatchChannelRequest holds only the fields present in the form. A present but empty
// optional field clears the stored value.
type PatchChannelRequest struct {
	Name              *string `form:"name"              validate:"omitnil,min=1,max=255"`
	Subscribers       *int    `form:"subscribers"       validate:"omitnil,gte=0"`
	InviteLink        *string `form:"inviteLink"        validate:"omitnil,url"`
	Description       *string `form:"description"`
	CustomPixelID     *string `form:"customPixelId"     validate:"omitnil,max=64"`
	CustomAccessToken *string `form:"customAccessToken"`
}

func (r PatchChannelRequest) Empty() bool {
	return r.Name == nil && r.Subscribers == nil && r.InviteLink == nil &&
		r.Description == nil && r.CustomPixelID == nil && r.CustomAccessToken == nil
}

// LogoUpload is an already size-checked and sniffed image.
type LogoUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type UserResponse struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	IsActive bool        `json:"isActive"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Role: u.Role, IsActive: u.IsActive}
}

// PublicChannel is what unauthenticated visitors see. Owner and credentials stay hidden.
type PublicChannel struct {
	UUID          string    `json:"uuid"`
	Name          string    `json:"name"`
	Subscribers   int       `json:"subscribers"`
	Logo          string    `json:"logo"`
	InviteLink    string    `json:"inviteLink"`
	Description   *string   `json:"description"`
	CustomPixelID *string   `json:"customPixelId"`
	CreatedAt     time.Time `json:"createdAt"`
}

func NewPublicChannel(ch *models.Channel) PublicChannel {
	return PublicChannel{
		UUID:          ch.UUID,
		Name:          ch.Name,
		Subscribers:   ch.Subscribers,
		Logo:          ch.Logo,
		InviteLink:    ch.InviteLink,
		Description:   ch.Description,
		CustomPixelID: ch.CustomPixelID,
		CreatedAt:     ch.CreatedAt,
	}
}

type TrackResponse struct {
	Success bool `json:"success"`
}
