package background

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"coursepass/internal/caching"
	"coursepass/internal/logger"
	"coursepass/internal/repositories"
	"coursepass/internal/services"
)

// JobScheduler runs the periodic maintenance jobs: the subscription renewal
// sweep and the floor price cache refresh.
type JobScheduler struct {
	scheduler       gocron.Scheduler
	groupRepo       repositories.GroupRepository
	subscriptionSvc services.SubscriptionService
	marketplaceSvc  services.MarketplaceService
	cacheSvc        caching.CacheService
	log             *logger.Logger
	renewalSweep    time.Duration
	floorRefresh    time.Duration
	jobs            map[string]gocron.Job
	mu              sync.RWMutex
}

func NewJobScheduler(
	groupRepo repositories.GroupRepository,
	subscriptionSvc services.SubscriptionService,
	marketplaceSvc services.MarketplaceService,
	cacheSvc caching.CacheService,
	log *logger.Logger,
	renewalSweep, floorRefresh time.Duration,
) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:       scheduler,
		groupRepo:       groupRepo,
		subscriptionSvc: subscriptionSvc,
		marketplaceSvc:  marketplaceSvc,
		cacheSvc:        cacheSvc,
		log:             log,
		renewalSweep:    renewalSweep,
		floorRefresh:    floorRefresh,
		jobs:            make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.log.Info().Msg("starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	js.log.Info().Msg("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	js.mu.Lock()
	defer js.mu.Unlock()

	renewalJob, err := js.scheduler.NewJob(
		gocron.DurationJob(js.renewalSweep),
		gocron.NewTask(js.sweepRenewals, context.Background()),
		gocron.WithName("subscription-renewal-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	js.jobs["renewal-sweep"] = renewalJob

	floorJob, err := js.scheduler.NewJob(
		gocron.DurationJob(js.floorRefresh),
		gocron.NewTask(js.refreshFloorPrices, context.Background()),
		gocron.WithName("floor-price-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	js.jobs["floor-refresh"] = floorJob

	return nil
}

// sweepRenewals walks the monthly-billed groups and flags the ones inside
// the renewal window or past expiry. Billing itself stays owner-initiated;
// the sweep surfaces the state and drops stale cached views.
func (js *JobScheduler) sweepRenewals(ctx context.Context) {
	const pageSize = 100

	for offset := 0; ; offset += pageSize {
		groups, err := js.groupRepo.ListMonthly(ctx, pageSize, offset)
		if err != nil {
			js.log.Error().Err(err).Msg("renewal sweep: listing monthly groups failed")
			return
		}
		if len(groups) == 0 {
			return
		}

		for _, group := range groups {
			status := js.subscriptionSvc.ComputeStatus(group)
			if status == nil || !status.IsRenewalDue {
				continue
			}

			event := js.log.Info()
			if status.IsExpired {
				event = js.log.Warn()
			}
			event.
				Str("group_id", group.ID.String()).
				Bool("expired", status.IsExpired).
				Msg("subscription renewal due")

			_ = js.cacheSvc.InvalidateGroupViews(ctx, group.ID)
		}

		if len(groups) < pageSize {
			return
		}
	}
}

// refreshFloorPrices re-derives the floor for every course that currently
// has a cached floor, so hot reads stay warm between listing mutations.
func (js *JobScheduler) refreshFloorPrices(ctx context.Context) {
	courseIDs, err := js.cacheSvc.CoursesWithCachedFloor(ctx)
	if err != nil {
		js.log.Error().Err(err).Msg("floor refresh: listing cached courses failed")
		return
	}

	for _, courseID := range courseIDs {
		if err := js.cacheSvc.DeleteFloorPrice(ctx, courseID); err != nil {
			continue
		}
		if _, err := js.marketplaceSvc.GetFloorPrice(ctx, courseID); err != nil {
			js.log.Warn().Err(err).Str("course_id", courseID).Msg("floor refresh failed")
		}
	}
}
