package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/tg_landing/internal/mykafka"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
)

const publishTimeout = 5 * time.Second

// publish is best-effort: failures are logged and never reach the caller.
func publish(ctx context.Context, p mykafka.Publisher, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishEvent(ctx, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "type", event["type"], "error", err)
	}
}
