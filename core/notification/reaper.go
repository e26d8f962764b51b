package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/shule/core"
)

// Reaper periodically purges the read notifications older than its retention.
type Reaper struct {
	svc       Service
	retention time.Duration
	cron      *cron.Cron
	logger    core.Logger
}

// NewReaper schedules the purge on schedule, a cron spec or descriptor (eg. "@daily").
func NewReaper(svc Service, retention time.Duration, schedule string, logger core.Logger) (*Reaper, error) {
	vala.BeginValidation().Validate(
		vala.IsNotNil(svc, "svc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	r := &Reaper{
		svc:       svc,
		retention: retention,
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger:    logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.Run); err != nil {
		return nil, errors.Wrapf(err, "scheduling reaper (%q)", schedule)
	}
	return r, nil
}

// Run purges once.
func (r *Reaper) Run() {
	cnt, err := r.svc.PurgeRead(context.Background(), r.retention)
	if err != nil {
		r.logger.Error("notification reaper: "+err.Error(), err)
		return
	}
	if cnt > 0 {
		r.logger.Info(fmt.Sprintf("notification reaper: purged %d read notifications", cnt))
	}
}

func (r *Reaper) Start() { r.cron.Start() }

// Stop stops the scheduler and waits for a running purge to complete.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}
