package service

import (
	"context"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/codex-editor/codex-companion/internal/config"
	"github.com/codex-editor/codex-companion/internal/jobs"
	"github.com/codex-editor/codex-companion/pkg/log"
)

// scanService runs the workspace scan on a cron schedule. Overlapping
// triggers collapse into one scan via singleflight.
type scanService struct {
	cfg      config.Config
	cronExpr string
	cron     *cron.Cron
	queue    *jobs.Queue
	indexer  *Indexer
}

func NewRunnableScanService(
	cfg config.Config,
	c *cron.Cron,
	queue *jobs.Queue,
	indexer *Indexer,
) scanService {
	return scanService{
		cfg:      cfg,
		cronExpr: cfg.Index.CronExpr,
		cron:     c,
		queue:    queue,
		indexer:  indexer,
	}
}

var singleflightGroup singleflight.Group

func (s scanService) Schedule(
	ctx context.Context,
) error {
	log.Info("Run ScanService with cron %q", s.cronExpr)

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("scan", func() (any, error) {
			enqueued, err := s.indexer.Scan(ctx, s.queue, "cron")
			if err != nil {
				log.Error("Scheduled scan failed: %v", err)
				return nil, err
			}
			log.Info("Scheduled scan enqueued %d jobs", enqueued)
			return nil, nil
		})
	}
	_, err := s.cron.AddFunc(s.cronExpr, runFunc)
	return err
}

// TriggerScan runs one scan immediately, deduplicated with any scan that
// the cron schedule already has in flight.
func (s scanService) TriggerScan(ctx context.Context, source string) (int, error) {
	result, err, _ := singleflightGroup.Do("scan", func() (any, error) {
		return s.indexer.Scan(ctx, s.queue, source)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}
