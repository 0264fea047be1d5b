package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/tg_landing/internal/conversions"
	"github.com/Skotchmaster/tg_landing/internal/models"
	"github.com/Skotchmaster/tg_landing/internal/repo"
	"github.com/Skotchmaster/tg_landing/internal/testutil"
	"github.com/Skotchmaster/tg_landing/internal/transport"
	pkg_hash "github.com/Skotchmaster/tg_landing/pkg/hash"
)

type memLogos struct {
	mu        sync.Mutex
	saved     map[string][]byte
	removed   []string
	removeErr error
	n         int
}

func newMemLogos() *memLogos { return &memLogos{saved: map[string][]byte{}} }

func (m *memLogos) SaveLogo(_ context.Context, filename, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	url := "/uploads/logos/" + string(rune('a'+m.n)) + "-" + filename
	m.saved[url] = data
	return url, nil
}

func (m *memLogos) RemoveLogo(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, url)
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.saved, url)
	return nil
}

type recordedEvent struct {
	Key   string
	Event map[string]any
}

type memPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *memPublisher) PublishEvent(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{Key: key, Event: event.(map[string]any)})
	return nil
}

func (p *memPublisher) Close() error { return nil }

func (p *memPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event["type"].(string))
	}
	return out
}

type sentCall struct {
	Creds  conversions.Credentials
	Events []conversions.Event
}

type fakeSender struct {
	calls []sentCall
	err   error
}

func (f *fakeSender) SendEvents(_ context.Context, creds conversions.Credentials, events ...conversions.Event) error {
	f.calls = append(f.calls, sentCall{Creds: creds, Events: events})
	return f.err
}

var errBoom = errors.New("boom")

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return &repo.GormRepo{DB: testutil.NewDB(t)}
}

func seedUser(t *testing.T, r *repo.GormRepo, username, password string, role models.Role) *models.User {
	t.Helper()
	h, err := pkg_hash.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Username: username, PasswordHash: h, Role: role, IsActive: true}
	require.NoError(t, r.CreateUserIfNotExists(context.Background(), u))
	return u
}

func alphaRequest() transport.CreateChannelRequest {
	return transport.CreateChannelRequest{Name: "Alpha", Subscribers: 100, InviteLink: "https://t.me/x"}
}

func pngLogo() *transport.LogoUpload {
	return &transport.LogoUpload{Filename: "alpha.png", ContentType: "image/png", Data: []byte("\x89PNG")}
}

func strPtr(s string) *string { return &s }
