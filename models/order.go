package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusOpen      = "Open"
	OrderStatusReceived  = "Received"
	OrderStatusCancelled = "Cancelled"
)

// PurchaseOrder groups ordered line items into per-category buckets, stored
// denormalized in categories_json the way the order-intake flows write them.
type PurchaseOrder struct {
	ID             uint      `gorm:"primary_key" json:"id"`
	Site           string    `gorm:"index;size:100;not null" json:"site"`
	Vendor         string    `gorm:"size:255" json:"vendor"`
	Status         string    `gorm:"index;size:20;not null" json:"status"`
	CategoriesJSON []byte    `gorm:"type:json" json:"categories"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderCategory is one category bucket inside an order. Bucket numbers are
// unique within one order and empty buckets are pruned after migration.
type OrderCategory struct {
	Number    int             `json:"number"`
	Completed bool            `json:"completed"`
	Items     []OrderLineItem `json:"items"`
}

type OrderLineItem struct {
	Gtin        string          `json:"gtin"`
	Name        string          `json:"name"`
	OrderQty    decimal.Decimal `json:"order_qty"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

func (o *PurchaseOrder) Categories() []OrderCategory {
	if len(o.CategoriesJSON) == 0 {
		return nil
	}
	var categories []OrderCategory
	if err := json.Unmarshal(o.CategoriesJSON, &categories); err != nil {
		return nil
	}
	return categories
}

func (o *PurchaseOrder) SetCategories(categories []OrderCategory) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	o.CategoriesJSON = raw
	return nil
}

// LineItemCount counts items across every bucket.
func (o *PurchaseOrder) LineItemCount() int {
	count := 0
	for _, cat := range o.Categories() {
		count += len(cat.Items)
	}
	return count
}

// OpenOrdersReferencingGtins returns open orders holding at least one line
// for any of the given keys. Buckets live in a JSON column, so membership
// is checked after decode rather than pushed into SQL.
func OpenOrdersReferencingGtins(ctx context.Context, gtins map[string]bool) ([]PurchaseOrder, error) {
	var orders []PurchaseOrder
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("status = ?", OrderStatusOpen).Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}

	matched := orders[:0]
	for _, order := range orders {
		if orderReferencesAny(&order, gtins) {
			matched = append(matched, order)
		}
	}
	return matched, nil
}

func orderReferencesAny(order *PurchaseOrder, gtins map[string]bool) bool {
	for _, cat := range order.Categories() {
		for _, item := range cat.Items {
			if gtins[item.Gtin] {
				return true
			}
		}
	}
	return false
}

func SavePurchaseOrder(ctx context.Context, order *PurchaseOrder) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&PurchaseOrder{}).
		Where("id = ?", order.ID).
		Update("categories_json", order.CategoriesJSON).Error
}
