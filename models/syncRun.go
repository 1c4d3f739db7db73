package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/utils"
	"gorm.io/gorm"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
	// A queued run that lost the chain lease to an in-flight run.
	SyncRunStatusSkipped = "skipped"
)

// FinishedRunStatus reports whether a run status is terminal. Terminal runs
// ignore redelivered dispatch messages.
func FinishedRunStatus(status string) bool {
	switch status {
	case SyncRunStatusSuccess, SyncRunStatusFailed, SyncRunStatusPartial, SyncRunStatusSkipped:
		return true
	}
	return false
}

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)

// CategorySyncRun is the journal row for one reconciliation run. The
// in-memory RunReport is serialized into stats_json on completion.
type CategorySyncRun struct {
	ID             uint       `gorm:"primary_key" json:"id"`
	Status         string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy    string     `gorm:"size:20" json:"triggered_by"`
	StatsJSON      []byte     `gorm:"type:json" json:"stats"`
	RecordsChanged int        `json:"records_changed"`
	ErrorCount     int        `json:"error_count"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	DurationMs     int64      `json:"duration_ms"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CategorySyncError is one recorded per-record or per-stage failure. Runs
// keep going after writing one of these.
type CategorySyncError struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	SyncRunId uint      `gorm:"index;not null" json:"sync_run_id"`
	Stage     string    `gorm:"size:50" json:"stage"`
	Gtin      string    `gorm:"size:14" json:"gtin"`
	Site      string    `gorm:"size:100" json:"site"`
	ErrorCode string    `gorm:"size:64" json:"error_code"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateSyncRun(ctx context.Context, triggeredBy string) (*CategorySyncRun, error) {
	run := CategorySyncRun{
		Status:      SyncRunStatusQueued,
		TriggeredBy: triggeredBy,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func UpdateSyncRun(ctx context.Context, run *CategorySyncRun, updates map[string]interface{}) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(run).Updates(updates).Error
}

func GetSyncRun(ctx context.Context, id uint) (*CategorySyncRun, error) {
	var run CategorySyncRun
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &run, nil
}

func RecentSyncRuns(ctx context.Context, limit int) ([]CategorySyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []CategorySyncRun
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func CreateSyncError(ctx context.Context, runId uint, stage string, gtin string, site string, code string, message string) error {
	errRec := CategorySyncError{
		SyncRunId: runId,
		Stage:     stage,
		Gtin:      gtin,
		Site:      site,
		ErrorCode: code,
		Message:   message,
	}
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.WithContext(ctx).Create(&errRec).Error
}

func SyncErrorsForRun(ctx context.Context, runId uint) ([]CategorySyncError, error) {
	var errs []CategorySyncError
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("sync_run_id = ?", runId).Order("id").Find(&errs).Error; err != nil {
		return nil, err
	}
	return errs, nil
}
