package possync

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/models"
)

const DefaultItemBatchSize = 2000

// ItemResyncResult carries the changed-key set forward to order migration.
type ItemResyncResult struct {
	// Updated maps each changed GTIN to its new authoritative number.
	Updated map[string]int
	// UpdatedOrder preserves enumeration order for deterministic bulk apply.
	UpdatedOrder []string
	NotFound     []string
}

// ResyncItemCategories re-derives every item key's category number from the
// BOS replica and corrects mismatched rows in batches. A key the BOS does
// not know keeps whatever category it has; an existing category is never
// nulled out. A failed lookup batch contributes its keys to NotFound and
// the run moves on.
func ResyncItemCategories(ctx context.Context, source CategorySource, items ItemStore, runId uint, batchSize int, report *RunReport) (*ItemResyncResult, error) {
	logger := config.GetLogger()

	if batchSize <= 0 {
		batchSize = DefaultItemBatchSize
	}

	gtins, err := items.DistinctGtins(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate item keys: %w", err)
	}

	batches, err := BatchKeys(gtins, batchSize)
	if err != nil {
		return nil, err
	}

	result := &ItemResyncResult{Updated: make(map[string]int)}

	for _, batch := range batches {
		external, err := source.LookupCategoriesForKeys(ctx, batch)
		if err != nil {
			// Whole batch unresolved: bucket the keys as not found,
			// record once, keep going with later batches.
			config.LogError(logger, "possync", "ResyncItemCategories", "category lookup batch failed", len(batch), err)
			report.AddError(StageItemResync, fmt.Sprintf("lookup batch of %d keys: %s", len(batch), err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageItemResync, "", "", "lookup_failed", err.Error())
			result.NotFound = append(result.NotFound, batch...)
			continue
		}

		// One representative row per key, fetched for the whole batch:
		// categories are treated as a property of the GTIN alone, not of
		// (gtin, site).
		local, err := items.RepresentativesByGtin(ctx, batch)
		if err != nil {
			report.AddError(StageItemResync, fmt.Sprintf("fetch batch of %d keys: %s", len(batch), err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageItemResync, "", "", "fetch_failed", err.Error())
			continue
		}

		changes := make(map[string]int)
		var changeOrder []string

		for _, gtin := range batch {
			newNumber, ok := external[gtin]
			if !ok {
				result.NotFound = append(result.NotFound, gtin)
				continue
			}

			item, ok := local[gtin]
			if !ok {
				result.NotFound = append(result.NotFound, gtin)
				continue
			}

			if item.CategoryNumber == nil || *item.CategoryNumber != newNumber {
				changes[gtin] = newNumber
				changeOrder = append(changeOrder, gtin)
			}
		}

		if len(changes) == 0 {
			continue
		}

		bulk := items.UpdateCategories(ctx, changes, changeOrder)
		for _, opErr := range bulk.Errors {
			failedGtin := ""
			if opErr.OpIndex < len(changeOrder) {
				failedGtin = changeOrder[opErr.OpIndex]
			}
			report.AddError(StageItemResync, fmt.Sprintf("update %s: %s", failedGtin, opErr.Message))
			_ = models.CreateSyncError(ctx, runId, StageItemResync, failedGtin, "", "update_failed", opErr.Message)
			delete(changes, failedGtin)
		}

		for _, gtin := range changeOrder {
			if newNumber, ok := changes[gtin]; ok {
				result.Updated[gtin] = newNumber
				result.UpdatedOrder = append(result.UpdatedOrder, gtin)
			}
		}
	}

	report.ItemChanges.Updated = len(result.Updated)
	report.ItemChanges.NotFound = len(result.NotFound)
	return result, nil
}
