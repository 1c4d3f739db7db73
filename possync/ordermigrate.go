package possync

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/models"
)

// MigrateOrderCategories relocates line items on open orders after their
// GTIN's authoritative category changed. Each affected item is moved into
// the existing bucket with the target number when the order has one,
// otherwise into a freshly appended bucket (completed flag copied from the
// source bucket) provided the registry knows the target. An unknown target
// leaves the item where it is and records a skip; items are never dropped.
// Empty buckets are pruned afterwards and the order is saved only when at
// least one item actually moved.
func MigrateOrderCategories(ctx context.Context, registry CategoryStore, orders OrderStore, changes *ItemResyncResult, runId uint, report *RunReport) error {
	logger := config.GetLogger()

	if changes == nil || len(changes.Updated) == 0 {
		return nil
	}

	affectedKeys := make(map[string]bool, len(changes.Updated))
	for gtin := range changes.Updated {
		affectedKeys[gtin] = true
	}

	openOrders, err := orders.OpenOrdersReferencing(ctx, affectedKeys)
	if err != nil {
		return fmt.Errorf("load affected orders: %w", err)
	}

	for i := range openOrders {
		order := &openOrders[i]
		moved, skipped := migrateOneOrder(ctx, registry, order, changes.Updated, runId, report)

		report.OrderChanges.Moved += moved
		report.OrderChanges.Skipped += skipped

		if moved == 0 {
			continue
		}
		if err := orders.Save(ctx, order); err != nil {
			config.LogError(logger, "possync", "MigrateOrderCategories", "order save failed", order.ID, err)
			report.AddError(StageOrderMigrate, fmt.Sprintf("save order %d: %s", order.ID, err.Error()))
			_ = models.CreateSyncError(ctx, runId, StageOrderMigrate, "", order.Site, "save_failed", err.Error())
			continue
		}
		report.OrderChanges.OrdersUpdated++
	}

	return nil
}

func migrateOneOrder(ctx context.Context, registry CategoryStore, order *models.PurchaseOrder, updated map[string]int, runId uint, report *RunReport) (moved int, skipped int) {
	categories := order.Categories()

	// New buckets appended during the walk are visited too; their items
	// already sit under the target number and fall through the skip check.
	for ci := 0; ci < len(categories); ci++ {
		// Reverse so removals keep remaining indices valid.
		for ii := len(categories[ci].Items) - 1; ii >= 0; ii-- {
			item := categories[ci].Items[ii]

			target, ok := updated[item.Gtin]
			if !ok || categories[ci].Number == target {
				continue
			}

			if ti := findBucket(categories, target); ti >= 0 {
				categories[ti].Items = append(categories[ti].Items, item)
				categories[ci].Items = append(categories[ci].Items[:ii], categories[ci].Items[ii+1:]...)
				moved++
				continue
			}

			category, err := registry.FindByNumber(ctx, target)
			if err != nil {
				report.AddError(StageOrderMigrate, fmt.Sprintf("registry lookup %d: %s", target, err.Error()))
				_ = models.CreateSyncError(ctx, runId, StageOrderMigrate, item.Gtin, order.Site, "registry_lookup_failed", err.Error())
				skipped++
				continue
			}
			if category == nil {
				// Target number unknown to the registry: surface it
				// instead of inventing a bucket nothing else knows about.
				_ = models.CreateSyncError(ctx, runId, StageOrderMigrate, item.Gtin, order.Site, "missing_category",
					fmt.Sprintf("category %d not in registry", target))
				skipped++
				continue
			}

			categories = append(categories, models.OrderCategory{
				Number:    target,
				Completed: categories[ci].Completed,
				Items:     []models.OrderLineItem{item},
			})
			categories[ci].Items = append(categories[ci].Items[:ii], categories[ci].Items[ii+1:]...)
			moved++
		}
	}

	if moved > 0 {
		pruned := categories[:0]
		for _, category := range categories {
			if len(category.Items) > 0 {
				pruned = append(pruned, category)
			}
		}
		if err := order.SetCategories(pruned); err != nil {
			report.AddError(StageOrderMigrate, fmt.Sprintf("encode order %d: %s", order.ID, err.Error()))
			return 0, skipped
		}
	}

	return moved, skipped
}

func findBucket(categories []models.OrderCategory, number int) int {
	for i := range categories {
		if categories[i].Number == number {
			return i
		}
	}
	return -1
}
