package possync

import (
	"encoding/json"
	"time"
)

// Stage tags used in run errors and the journal.
const (
	StageRegistry      = "registry"
	StageItemResync    = "item_resync"
	StageOrderMigrate  = "order_migrate"
	StageInactiveFlags = "inactive_flags"
	StageNotify        = "notify"
)

type CategoryChanges struct {
	Added   []int `json:"added"`
	Updated []int `json:"updated"`
	Deleted []int `json:"deleted"`
}

type ItemChanges struct {
	Updated  int `json:"updated"`
	NotFound int `json:"notFound"`
}

type OrderChanges struct {
	Moved         int `json:"moved"`
	Skipped       int `json:"skipped"`
	OrdersUpdated int `json:"ordersUpdated"`
}

type InactiveFlags struct {
	Marked           int `json:"marked"`
	HadInventory     int `json:"hadInventory"`
	InventoryCleared int `json:"inventoryCleared"`
}

type RunError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// RunReport accumulates one reconciliation run's outcome. It lives for the
// duration of the run, is serialized into the journal row and the operator
// notification, then discarded.
type RunReport struct {
	Timestamp       time.Time       `json:"timestamp"`
	CategoryChanges CategoryChanges `json:"categoryChanges"`
	ItemChanges     ItemChanges     `json:"itemChanges"`
	OrderChanges    OrderChanges    `json:"orderChanges"`
	InactiveFlags   InactiveFlags   `json:"inactiveFlags"`
	Errors          []RunError      `json:"errors"`
}

func NewRunReport() *RunReport {
	return &RunReport{Timestamp: time.Now()}
}

func (r *RunReport) AddError(stage string, message string) {
	r.Errors = append(r.Errors, RunError{Stage: stage, Message: message})
}

// RecordsChanged totals every mutation the run performed, for the journal.
func (r *RunReport) RecordsChanged() int {
	return len(r.CategoryChanges.Added) + len(r.CategoryChanges.Updated) + len(r.CategoryChanges.Deleted) +
		r.ItemChanges.Updated +
		r.OrderChanges.Moved +
		r.InactiveFlags.Marked + r.InactiveFlags.InventoryCleared
}

func (r *RunReport) Encode() []byte {
	b, _ := json.Marshal(r)
	return b
}

type TriggerSyncRequest struct {
	TriggeredBy string `json:"triggeredBy" validate:"omitempty,oneof=manual retry system"`
	// Site restricts the inactive-item pass to one site, for targeted
	// reruns after a per-site failure. Empty means all sites.
	Site string `json:"site" validate:"omitempty,max=100"`
}

type SyncRunResponse struct {
	ID             uint    `json:"id"`
	Status         string  `json:"status"`
	TriggeredBy    string  `json:"triggeredBy"`
	StartedAt      *string `json:"startedAt"`
	FinishedAt     *string `json:"finishedAt"`
	DurationMs     int64   `json:"durationMs"`
	RecordsChanged int     `json:"recordsChanged"`
	ErrorCount     int     `json:"errorCount"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Stats  json.RawMessage     `json:"stats,omitempty"`
	Errors []SyncErrorResponse `json:"errors"`
}

type SyncErrorResponse struct {
	ID      uint   `json:"id"`
	Stage   string `json:"stage"`
	Gtin    string `json:"gtin"`
	Site    string `json:"site"`
	Message string `json:"message"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	RunId       uint   `json:"run_id"`
	TriggeredBy string `json:"triggered_by"`
	Site        string `json:"site,omitempty"`
}
