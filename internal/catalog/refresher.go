package catalog

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"rebalancer/internal/portfolio"
)

// Refresher periodically re-applies a source into a registry. Holdings observe
// the new prices through their instrument handles.
type Refresher struct {
	src Source
	reg *portfolio.Registry
	log *logrus.Logger
}

func NewRefresher(src Source, reg *portfolio.Registry, log *logrus.Logger) *Refresher {
	return &Refresher{src: src, reg: reg, log: log}
}

// Refresh applies the source once.
func (r *Refresher) Refresh(ctx context.Context) error {
	n, err := Apply(ctx, r.src, r.reg)
	if err != nil {
		return err
	}
	r.log.Debugf("refreshed %d catalog prices", n)
	return nil
}

// Start refreshes every interval until ctx is done.
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.log.Info("price refresher stopping")
				return
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					r.log.Warnf("failed to refresh prices: %v", err)
				}
			}
		}
	}()
}
