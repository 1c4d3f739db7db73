package possync

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/models"
	"bitbucket.org/mmdatafocus/station_backend/utils"
)

const DefaultOnHandBatchSize = 1000

// FlagInactiveItems walks every site, asks the BOS master list which of the
// site's keys are flagged inactive, and writes the two-flag state
// {active:false, inventoryExists:<on-hand present>} for each. A separate
// pass corrects inventory_exists for still-active items whose on-hand came
// back empty. On-hand lookups fail closed: an errored code counts as "no
// inventory confirmed" and never blocks the rest of the site.
func FlagInactiveItems(ctx context.Context, source CategorySource, items ItemStore, sites SiteDirectory, runId uint, inactiveBatchSize int, onHandBatchSize int, report *RunReport) error {
	logger := config.GetLogger()

	if inactiveBatchSize <= 0 {
		inactiveBatchSize = DefaultItemBatchSize
	}
	if onHandBatchSize <= 0 {
		onHandBatchSize = DefaultOnHandBatchSize
	}

	allSites, err := sites.All(ctx)
	if err != nil {
		return fmt.Errorf("load sites: %w", err)
	}

	// A run triggered for one site only touches that site's flags.
	if name, ok := utils.GetSiteNameFromContext(ctx); ok && name != "" {
		site, err := sites.FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("resolve site %s: %w", name, err)
		}
		if site == nil {
			return fmt.Errorf("unknown site %s", name)
		}
		allSites = []models.Site{*site}
	}

	for _, site := range allSites {
		if err := flagInactiveForSite(ctx, source, items, site, runId, inactiveBatchSize, report); err != nil {
			config.LogError(logger, "possync", "FlagInactiveItems", "inactive pass failed", site.Name, err)
			report.AddError(StageInactiveFlags, fmt.Sprintf("site %s inactive pass: %s", site.Name, err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageInactiveFlags, "", site.Name, "site_failed", err.Error())
		}
		if err := verifyActiveOnHand(ctx, source, items, site, runId, onHandBatchSize, report); err != nil {
			config.LogError(logger, "possync", "FlagInactiveItems", "active on-hand pass failed", site.Name, err)
			report.AddError(StageInactiveFlags, fmt.Sprintf("site %s on-hand pass: %s", site.Name, err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageInactiveFlags, "", site.Name, "site_failed", err.Error())
		}
	}

	return nil
}

func flagInactiveForSite(ctx context.Context, source CategorySource, items ItemStore, site models.Site, runId uint, batchSize int, report *RunReport) error {
	gtins, err := items.DistinctGtinsForSite(ctx, site.Name)
	if err != nil {
		return fmt.Errorf("enumerate keys: %w", err)
	}

	batches, err := BatchKeys(gtins, batchSize)
	if err != nil {
		return err
	}

	for _, batch := range batches {
		flagged, err := source.LookupInactiveFlags(ctx, batch)
		if err != nil {
			// Keys in a failed batch stay untouched this run.
			report.AddError(StageInactiveFlags, fmt.Sprintf("site %s inactive lookup batch of %d: %s", site.Name, len(batch), err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageInactiveFlags, "", site.Name, "lookup_failed", err.Error())
			continue
		}

		var updates []models.ItemFlagUpdate
		for _, gtin := range batch {
			scanCodes, inactive := flagged[gtin]
			if !inactive {
				continue
			}

			hasInventory := false
			for _, code := range scanCodes {
				qty, err := source.LookupOnHand(ctx, code, site.StationKey)
				if err != nil {
					// No inventory confirmed for this code; try the rest.
					_ = models.CreateSyncError(ctx, runId, StageInactiveFlags, gtin, site.Name, "onhand_failed", err.Error())
					continue
				}
				if qty != nil && qty.IsPositive() {
					hasInventory = true
					break
				}
			}

			updates = append(updates, models.ItemFlagUpdate{
				Gtin:            gtin,
				Active:          false,
				InventoryExists: hasInventory,
			})
		}

		if len(updates) == 0 {
			continue
		}

		bulk := items.UpdateFlags(ctx, site.Name, updates)
		failed := make(map[int]bool, len(bulk.Errors))
		for _, opErr := range bulk.Errors {
			failedGtin := ""
			if opErr.OpIndex < len(updates) {
				failedGtin = updates[opErr.OpIndex].Gtin
				failed[opErr.OpIndex] = true
			}
			report.AddError(StageInactiveFlags, fmt.Sprintf("flag %s@%s: %s", failedGtin, site.Name, opErr.Message))
			_ = models.CreateSyncError(ctx, runId, StageInactiveFlags, failedGtin, site.Name, "update_failed", opErr.Message)
		}

		// Only writes that landed count as flagged.
		for i, update := range updates {
			if failed[i] {
				continue
			}
			report.InactiveFlags.Marked++
			if update.InventoryExists {
				report.InactiveFlags.HadInventory++
			}
		}
	}

	return nil
}

// verifyActiveOnHand corrects only inventory_exists for active items; the
// active flag is the master list's call, not this pass's.
func verifyActiveOnHand(ctx context.Context, source CategorySource, items ItemStore, site models.Site, runId uint, batchSize int, report *RunReport) error {
	activeItems, err := items.ActiveItems(ctx, site.Name)
	if err != nil {
		return fmt.Errorf("load active items: %w", err)
	}

	codes := make([]string, 0, len(activeItems))
	for _, item := range activeItems {
		codes = append(codes, item.Gtin)
	}

	batches, err := BatchKeys(codes, batchSize)
	if err != nil {
		return err
	}

	for _, batch := range batches {
		onHand, err := source.LookupOnHandBulk(ctx, batch, site.StationKey)
		if err != nil {
			// Fails closed: nothing confirmed for the batch.
			report.AddError(StageInactiveFlags, fmt.Sprintf("site %s on-hand lookup batch of %d: %s", site.Name, len(batch), err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageInactiveFlags, "", site.Name, "onhand_failed", err.Error())
			onHand = nil
		}

		var missing []string
		for _, code := range batch {
			qty, ok := onHand[code]
			if !ok || !qty.IsPositive() {
				missing = append(missing, code)
			}
		}

		if len(missing) == 0 {
			continue
		}

		cleared, err := items.ClearInventoryFlags(ctx, site.Name, missing)
		if err != nil {
			report.AddError(StageInactiveFlags, fmt.Sprintf("clear flags %s: %s", site.Name, err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageInactiveFlags, "", site.Name, "update_failed", err.Error())
			continue
		}
		report.InactiveFlags.InventoryCleared += int(cleared)
	}

	return nil
}
