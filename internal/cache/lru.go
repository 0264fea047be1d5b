package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Skotchmaster/tg_landing/internal/transport"
)

type LRU struct {
	lru *expirable.LRU[string, transport.PublicChannel]
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1024
	}
	return &LRU{lru: expirable.NewLRU[string, transport.PublicChannel](size, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, uuid string) (*transport.PublicChannel, bool) {
	ch, ok := c.lru.Get(uuid)
	if !ok {
		return nil, false
	}
	return &ch, true
}

func (c *LRU) Set(_ context.Context, uuid string, ch *transport.PublicChannel) {
	if ch == nil {
		return
	}
	c.lru.Add(uuid, *ch)
}

func (c *LRU) Invalidate(_ context.Context, uuid string) {
	c.lru.Remove(uuid)
}

func (c *LRU) Close() error {
	c.lru.Purge()
	return nil
}
