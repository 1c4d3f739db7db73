package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
)

// Item is one site-scoped inventory line, keyed by GTIN. Rows are created
// by the intake flows; this core only corrects category_number and the two
// activity flags.
//
// (gtin, site) conceptually identifies one line, but the legacy data holds
// occasional duplicates, so no unique index is declared here.
type Item struct {
	ID              uint      `gorm:"primary_key" json:"id"`
	Gtin            string    `gorm:"index:idx_items_gtin_site,priority:1;size:14;not null" json:"gtin"`
	Site            string    `gorm:"index:idx_items_gtin_site,priority:2;size:100;not null" json:"site"`
	Name            string    `gorm:"size:255" json:"name"`
	CategoryNumber  *int      `gorm:"index" json:"category_number"`
	Active          bool      `gorm:"default:true" json:"active"`
	InventoryExists bool      `gorm:"default:true" json:"inventory_exists"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ItemFlagUpdate is one scheduled two-flag write for the inactive pass.
type ItemFlagUpdate struct {
	Gtin            string
	Active          bool
	InventoryExists bool
}

func DistinctItemGtins(ctx context.Context) ([]string, error) {
	var gtins []string
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Item{}).Distinct("gtin").Order("gtin").Pluck("gtin", &gtins).Error; err != nil {
		return nil, err
	}
	return gtins, nil
}

func DistinctItemGtinsForSite(ctx context.Context, site string) ([]string, error) {
	var gtins []string
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Item{}).Where("site = ?", site).Distinct("gtin").Order("gtin").Pluck("gtin", &gtins).Error; err != nil {
		return nil, err
	}
	return gtins, nil
}

// RepresentativeItemsByGtin fetches one representative row per key in a
// single IN query. Categories are a property of the GTIN alone, so the
// lowest-id row for each key stands in for all of its sites. Keys with no
// row are simply absent from the result.
func RepresentativeItemsByGtin(ctx context.Context, gtins []string) (map[string]Item, error) {
	if len(gtins) == 0 {
		return map[string]Item{}, nil
	}

	var rows []Item
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("gtin IN ?", gtins).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[string]Item, len(rows))
	for _, row := range rows {
		if _, ok := result[row.Gtin]; !ok {
			result[row.Gtin] = row
		}
	}
	return result, nil
}

// UpdateItemCategories sets the category number for every site's row
// sharing each GTIN. Unordered; per-key failures are collected.
func UpdateItemCategories(ctx context.Context, changes map[string]int, order []string) BulkWriteResult {
	db := config.GetDB().WithContext(ctx)
	var result BulkWriteResult

	for opIndex, gtin := range order {
		number, ok := changes[gtin]
		if !ok {
			continue
		}
		res := db.Model(&Item{}).
			Where("gtin = ?", gtin).
			Update("category_number", number)
		if res.Error != nil {
			result.addError(opIndex, res.Error)
			continue
		}
		result.Matched += res.RowsAffected
		result.Modified += res.RowsAffected
	}
	return result
}

// UpdateItemFlags writes {active, inventory_exists} for each scheduled
// (site, gtin) pair. Unordered; per-key failures are collected.
func UpdateItemFlags(ctx context.Context, site string, updates []ItemFlagUpdate) BulkWriteResult {
	db := config.GetDB().WithContext(ctx)
	var result BulkWriteResult

	for opIndex, update := range updates {
		res := db.Model(&Item{}).
			Where("site = ? AND gtin = ?", site, update.Gtin).
			Updates(map[string]interface{}{
				"active":           update.Active,
				"inventory_exists": update.InventoryExists,
			})
		if res.Error != nil {
			result.addError(opIndex, res.Error)
			continue
		}
		result.Matched += res.RowsAffected
		result.Modified += res.RowsAffected
	}
	return result
}

func ActiveItemsForSite(ctx context.Context, site string) ([]Item, error) {
	var items []Item
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("site = ? AND active = ?", site, true).Order("gtin").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ClearInventoryFlags marks inventory_exists false for still-active items
// whose on-hand came back empty. Active state is left alone.
func ClearInventoryFlags(ctx context.Context, site string, gtins []string) (int64, error) {
	if len(gtins) == 0 {
		return 0, nil
	}
	db := config.GetDB()
	res := db.WithContext(ctx).Model(&Item{}).
		Where("site = ? AND gtin IN ?", site, gtins).
		Update("inventory_exists", false)
	return res.RowsAffected, res.Error
}
