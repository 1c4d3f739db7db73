package possync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/models"
	"bitbucket.org/mmdatafocus/station_backend/utils"
)

// Pipeline wires the reconciliation stages to their collaborators. Stages
// run strictly in sequence; batches inside a stage are sequential too, to
// bound load on both databases.
type Pipeline struct {
	Source     CategorySource
	Categories CategoryStore
	Items      ItemStore
	Orders     OrderStore
	Sites      SiteDirectory
	Notifier   NotificationSink

	ItemBatchSize   int
	OnHandBatchSize int
}

// NewPipeline builds the production wiring: gorm stores over the app DB,
// the BOS replica as category source, Pub/Sub + GCS notification sink.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Source:          NewBosSource(config.GetBosDB()),
		Categories:      NewCategoryStore(),
		Items:           NewItemStore(),
		Orders:          NewOrderStore(),
		Sites:           NewSiteDirectory(),
		Notifier:        NewPubSubNotifier(),
		ItemBatchSize:   intFromEnv("SYNC_ITEM_BATCH_SIZE", DefaultItemBatchSize),
		OnHandBatchSize: intFromEnv("SYNC_ONHAND_BATCH_SIZE", DefaultOnHandBatchSize),
	}
}

func processSyncRun(ctx context.Context, payload SyncPubSubPayload) error {
	if payload.RunId == 0 {
		return errors.New("invalid payload")
	}

	run, err := models.GetSyncRun(ctx, payload.RunId)
	if err != nil {
		return err
	}
	if models.FinishedRunStatus(run.Status) {
		// Push subscriptions redeliver; a finished run stays finished.
		return nil
	}

	// Overlapping runs corrupt each other's diffs; the lease keeps the
	// chain down to one run at a time. The TTL outlives any normal run.
	lock, err := utils.ObtainRunLease(ctx, chainName(), 2*time.Hour, "possync", "processSyncRun")
	if errors.Is(err, utils.ErrorRunInProgress) {
		// Finalize the journal row; without this a rejected run sits in
		// queued forever and the status endpoint shows it as in flight.
		_ = models.UpdateSyncRun(ctx, run, map[string]interface{}{
			"status":      models.SyncRunStatusSkipped,
			"finished_at": time.Now(),
		})
		return err
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	ctx = utils.SetRunIdInContext(ctx, run.ID)
	if payload.Site != "" {
		ctx = utils.SetSiteNameInContext(ctx, payload.Site)
	}
	pipeline := NewPipeline()
	return pipeline.Run(ctx, run)
}

// Run executes all four stages under one failure boundary per stage: a
// stage's panic or returned error lands on the report, and every stage that
// does not depend on the failed one still runs. The journal row and the
// operator notification both go out regardless of errors.
func (p *Pipeline) Run(ctx context.Context, run *models.CategorySyncRun) error {
	logger := config.GetLogger()

	now := time.Now()
	startedAt := run.StartedAt
	if startedAt == nil {
		startedAt = &now
	}
	if err := models.UpdateSyncRun(ctx, run, map[string]interface{}{
		"status":     models.SyncRunStatusRunning,
		"started_at": startedAt,
	}); err != nil {
		return err
	}

	report := NewRunReport()

	if !config.SkipSyncStage("REGISTRY") {
		runStage(ctx, report, StageRegistry, func() error {
			return SyncCategoryRegistry(ctx, p.Source, p.Categories, report)
		})
	}

	var resync *ItemResyncResult
	if !config.SkipSyncStage("ITEM_RESYNC") {
		runStage(ctx, report, StageItemResync, func() error {
			var err error
			resync, err = ResyncItemCategories(ctx, p.Source, p.Items, run.ID, p.ItemBatchSize, report)
			return err
		})
	}

	// Order migration consumes the resync output; with no changed keys
	// (or a failed resync) there is nothing to relocate.
	if !config.SkipSyncStage("ORDER_MIGRATE") && resync != nil {
		runStage(ctx, report, StageOrderMigrate, func() error {
			return MigrateOrderCategories(ctx, p.Categories, p.Orders, resync, run.ID, report)
		})
	}

	if !config.SkipSyncStage("INACTIVE_FLAGS") {
		runStage(ctx, report, StageInactiveFlags, func() error {
			return FlagInactiveItems(ctx, p.Source, p.Items, p.Sites, run.ID, p.ItemBatchSize, p.OnHandBatchSize, report)
		})
	}

	finishedAt := time.Now()
	durationMs := finishedAt.Sub(*startedAt).Milliseconds()
	status := models.SyncRunStatusSuccess
	if len(report.Errors) > 0 && report.RecordsChanged() == 0 {
		status = models.SyncRunStatusFailed
	} else if len(report.Errors) > 0 {
		status = models.SyncRunStatusPartial
	}

	if err := models.UpdateSyncRun(ctx, run, map[string]interface{}{
		"status":          status,
		"finished_at":     finishedAt,
		"duration_ms":     durationMs,
		"records_changed": report.RecordsChanged(),
		"error_count":     len(report.Errors),
		"stats_json":      report.Encode(),
	}); err != nil {
		config.LogError(logger, "possync", "Run", "journal update failed", run.ID, err)
	}
	run.Status = status

	if config.NotificationsEnabled() && p.Notifier != nil {
		if err := p.Notifier.Notify(ctx, report, run); err != nil {
			config.LogError(logger, "possync", "Run", "notification failed", run.ID, err)
		}
	}

	return nil
}

// runStage is the per-stage failure boundary: errors are recorded, panics
// are recovered and journaled, the run continues either way.
func runStage(ctx context.Context, report *RunReport, stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			report.AddError(stage, fmt.Sprintf("panic: %v", r))
			if runId, ok := utils.GetRunIdFromContext(ctx); ok {
				_ = models.CreateSyncError(ctx, runId, stage, "", "", "panic", fmt.Sprint(r))
			}
		}
	}()
	if err := fn(); err != nil {
		report.AddError(stage, err.Error())
	}
}

func chainName() string {
	name := strings.TrimSpace(os.Getenv("CHAIN_NAME"))
	if name == "" {
		name = "default"
	}
	return name
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
