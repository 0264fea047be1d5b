package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/models"
	"github.com/Skotchmaster/tg_landing/internal/testutil"
)

func newRepo(t *testing.T) *GormRepo {
	t.Helper()
	return &GormRepo{DB: testutil.NewDB(t)}
}

func seedUser(t *testing.T, r *GormRepo, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x.y", Role: role, IsActive: true}
	require.NoError(t, r.CreateUserIfNotExists(context.Background(), u))
	return u
}

func seedChannel(t *testing.T, r *GormRepo, owner uint, name string) *models.Channel {
	t.Helper()
	ch := &models.Channel{
		UUID:       uuid.NewString(),
		Name:       name,
		Logo:       "/uploads/logos/a.png",
		InviteLink: "https://t.me/x",
		UserID:     owner,
	}
	require.NoError(t, r.CreateChannel(context.Background(), ch))
	return ch
}

func TestUsers(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	alice := seedUser(t, r, "alice", models.RoleAdmin)
	seedUser(t, r, "bob", models.RoleEmployee)

	err := r.CreateUserIfNotExists(ctx, &models.User{Username: "alice", PasswordHash: "x.y", Role: models.RoleEmployee})
	assert.True(t, errors.Is(err, ErrDuplicate))

	got, err := r.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	require.NoError(t, r.DB.Model(&models.User{}).Where("username = ?", "bob").Update("is_active", false).Error)
	users, err := r.ActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	updated, err := r.UpdateRole(ctx, alice.ID, models.RoleEmployee)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployee, updated.Role)

	_, err = r.UpdateRole(ctx, 999, models.RoleAdmin)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestChannels_SoftDeleteAndOwnership(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	owner := seedUser(t, r, "owner", models.RoleEmployee)
	other := seedUser(t, r, "other", models.RoleEmployee)

	first := seedChannel(t, r, owner.ID, "First")
	second := seedChannel(t, r, owner.ID, "Second")
	seedChannel(t, r, other.ID, "Foreign")

	list, err := r.ChannelsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	_, err = r.OwnedActiveChannel(ctx, first.ID, other.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	assert.True(t, errors.Is(r.MarkChannelDeleted(ctx, first.ID, other.ID), gorm.ErrRecordNotFound))
	require.NoError(t, r.MarkChannelDeleted(ctx, first.ID, owner.ID))
	assert.True(t, errors.Is(r.MarkChannelDeleted(ctx, first.ID, owner.ID), gorm.ErrRecordNotFound))

	_, err = r.ActiveChannelByUUID(ctx, first.UUID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	list, err = r.ChannelsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	var raw models.Channel
	require.NoError(t, r.DB.Where("id = ?", first.ID).First(&raw).Error)
	assert.Equal(t, models.ChannelDeleted, raw.Status)
}

func TestChannels_Search(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	owner := seedUser(t, r, "owner", models.RoleEmployee)
	crypto := seedChannel(t, r, owner.ID, "Crypto News")
	desc := "daily 100% crypto"
	crypto.Description = &desc
	require.NoError(t, r.SaveChannel(ctx, crypto))
	seedChannel(t, r, owner.ID, "Cooking")

	got, err := r.SearchOwnerChannels(ctx, owner.ID, "CRYPTO", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, crypto.ID, got[0].ID)

	got, err = r.SearchOwnerChannels(ctx, owner.ID, "100%", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = r.SearchOwnerChannels(ctx, owner.ID+1, "crypto", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.SearchOwnerChannels(ctx, owner.ID, "", 0, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = r.SearchOwnerChannels(ctx, owner.ID, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, crypto.ID, got[0].ID)

	ordered, err := r.ChannelsByUUIDs(ctx, owner.ID, []string{"missing", crypto.UUID})
	require.NoError(t, err)
	require.Len(t, ordered, 1)
	assert.Equal(t, crypto.UUID, ordered[0].UUID)
}

func TestPixelSettingsUpsert(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "owner", models.RoleEmployee)

	_, err := r.PixelSettingsByUser(ctx, u.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	first, err := r.UpsertPixelSettings(ctx, u.ID, "p1", "t1")
	require.NoError(t, err)

	second, err := r.UpsertPixelSettings(ctx, u.ID, "p2", "t2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := r.PixelSettingsByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "p2", got.PixelID)
	assert.Equal(t, "t2", got.AccessToken)
}

func TestSessions(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "owner", models.RoleEmployee)
	now := time.Now().UTC()

	require.NoError(t, r.CreateSession(ctx, &models.Session{ID: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, r.CreateSession(ctx, &models.Session{ID: "old", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))

	n, err := r.DeleteExpiredSessions(ctx, u.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = r.SessionByID(ctx, "old")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.NoError(t, r.DeleteSession(ctx, "live"))
	_, err = r.SessionByID(ctx, "live")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
