package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Poller struct {
	interval   time.Duration
	pollMethod func(ctx context.Context) error
	logger     *zap.Logger
}

func NewPoller(interval time.Duration, pollMethod func(ctx context.Context) error, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		interval:   interval,
		pollMethod: pollMethod,
		logger:     logger,
	}
}

// Start polls once immediately and then on every tick until ctx ends.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("starting poller", zap.Duration("interval", p.interval))
	p.poll(ctx)

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			p.logger.Info("poller stopped due to context cancellation")
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.pollMethod(ctx); err != nil {
		p.logger.Error("error polling", zap.Error(err))
		return
	}
	p.logger.Debug("poll method executed successfully")
}
