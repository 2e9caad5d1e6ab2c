package bus

import (
	"context"

	"github.com/yungbote/careerprep-backend/internal/platform/envutil"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
	"github.com/yungbote/careerprep-backend/internal/realtime"
)

// Bus fans SSE messages out to every API replica.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// NewSSEBus returns the Redis bus when REDIS_ADDR is set and the in-process
// bus otherwise.
func NewSSEBus(log *logger.Logger) (Bus, error) {
	if envutil.String("REDIS_ADDR", "") == "" {
		return NewLocalBus(log), nil
	}
	return NewRedisBus(log)
}
