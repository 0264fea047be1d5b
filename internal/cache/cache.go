package cache

import (
	"context"

	"github.com/Skotchmaster/tg_landing/internal/transport"
)

// ChannelCache is the read-through cache in front of the public channel lookup.
// Implementations return copies so callers may not mutate shared entries.
type ChannelCache interface {
	Get(ctx context.Context, uuid string) (*transport.PublicChannel, bool)
	Set(ctx context.Context, uuid string, ch *transport.PublicChannel)
	Invalidate(ctx context.Context, uuid string)
	Close() error
}

// Nop never hits. Used when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string) (*transport.PublicChannel, bool) { return nil, false }
func (Nop) Set(context.Context, string, *transport.PublicChannel)        {}
func (Nop) Invalidate(context.Context, string)                           {}
func (Nop) Close() error                                                 { return nil }
