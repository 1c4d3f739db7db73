package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/station_backend/models"
)

func TestFinishedRunStatus(t *testing.T) {
	terminal := []string{
		models.SyncRunStatusSuccess,
		models.SyncRunStatusFailed,
		models.SyncRunStatusPartial,
		models.SyncRunStatusSkipped,
	}
	for _, status := range terminal {
		if !models.FinishedRunStatus(status) {
			t.Fatalf("status %q should be terminal", status)
		}
	}

	inFlight := []string{models.SyncRunStatusQueued, models.SyncRunStatusRunning, ""}
	for _, status := range inFlight {
		if models.FinishedRunStatus(status) {
			t.Fatalf("status %q should not be terminal", status)
		}
	}
}
