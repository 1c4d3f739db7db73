package config

import (
	"os"
	"strings"
)

// SkipSyncStage lets operators disable individual reconciliation stages
// without a redeploy, e.g. while the BOS replica is being rebuilt.
//
// Set via env:
// - SKIP_SYNC_STAGES="REGISTRY,ITEM_RESYNC,ORDER_MIGRATE,INACTIVE_FLAGS"
//
// Stage keys are case-insensitive.
func SkipSyncStage(stage string) bool {
	stage = strings.ToUpper(strings.TrimSpace(stage))
	if stage == "" {
		return false
	}
	raw := os.Getenv("SKIP_SYNC_STAGES")
	if strings.TrimSpace(raw) == "" {
		return false
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.ToUpper(strings.TrimSpace(part)) == stage {
			return true
		}
	}
	return false
}

// NotificationsEnabled gates the Pub/Sub notification sink. Runs still
// journal their report when notifications are off.
//
// Set via env:
// - DISABLE_SYNC_NOTIFICATIONS=true
func NotificationsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_SYNC_NOTIFICATIONS")))
	return !(v == "1" || v == "true" || v == "yes" || v == "y")
}
