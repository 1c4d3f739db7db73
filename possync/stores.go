package possync

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/station_backend/models"
	"gorm.io/gorm"
)

// The pipeline stages take their collaborators as interfaces so tests can
// substitute in-memory fakes. Production wiring uses the gorm-backed
// adapters below.

type CategoryStore interface {
	All(ctx context.Context) ([]models.Category, error)
	// FindByNumber returns (nil, nil) when the registry has no such number.
	FindByNumber(ctx context.Context, number int) (*models.Category, error)
	Apply(ctx context.Context, inserts []models.Category, updates []models.Category, deleteNumbers []int) models.BulkWriteResult
}

type ItemStore interface {
	DistinctGtins(ctx context.Context) ([]string, error)
	DistinctGtinsForSite(ctx context.Context, site string) ([]string, error)
	// RepresentativesByGtin returns one row per key; keys with no row are
	// absent from the map.
	RepresentativesByGtin(ctx context.Context, gtins []string) (map[string]models.Item, error)
	UpdateCategories(ctx context.Context, changes map[string]int, order []string) models.BulkWriteResult
	UpdateFlags(ctx context.Context, site string, updates []models.ItemFlagUpdate) models.BulkWriteResult
	ActiveItems(ctx context.Context, site string) ([]models.Item, error)
	ClearInventoryFlags(ctx context.Context, site string, gtins []string) (int64, error)
}

type OrderStore interface {
	OpenOrdersReferencing(ctx context.Context, gtins map[string]bool) ([]models.PurchaseOrder, error)
	Save(ctx context.Context, order *models.PurchaseOrder) error
}

type SiteDirectory interface {
	All(ctx context.Context) ([]models.Site, error)
	FindByName(ctx context.Context, name string) (*models.Site, error)
}

type gormCategoryStore struct{}

func NewCategoryStore() CategoryStore { return gormCategoryStore{} }

func (gormCategoryStore) All(ctx context.Context) ([]models.Category, error) {
	return models.AllCategories(ctx)
}

func (gormCategoryStore) FindByNumber(ctx context.Context, number int) (*models.Category, error) {
	category, err := models.FindCategoryByNumber(ctx, number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return category, err
}

func (gormCategoryStore) Apply(ctx context.Context, inserts []models.Category, updates []models.Category, deleteNumbers []int) models.BulkWriteResult {
	return models.ApplyCategoryChanges(ctx, inserts, updates, deleteNumbers)
}

type gormItemStore struct{}

func NewItemStore() ItemStore { return gormItemStore{} }

func (gormItemStore) DistinctGtins(ctx context.Context) ([]string, error) {
	return models.DistinctItemGtins(ctx)
}

func (gormItemStore) DistinctGtinsForSite(ctx context.Context, site string) ([]string, error) {
	return models.DistinctItemGtinsForSite(ctx, site)
}

func (gormItemStore) RepresentativesByGtin(ctx context.Context, gtins []string) (map[string]models.Item, error) {
	return models.RepresentativeItemsByGtin(ctx, gtins)
}

func (gormItemStore) UpdateCategories(ctx context.Context, changes map[string]int, order []string) models.BulkWriteResult {
	return models.UpdateItemCategories(ctx, changes, order)
}

func (gormItemStore) UpdateFlags(ctx context.Context, site string, updates []models.ItemFlagUpdate) models.BulkWriteResult {
	return models.UpdateItemFlags(ctx, site, updates)
}

func (gormItemStore) ActiveItems(ctx context.Context, site string) ([]models.Item, error) {
	return models.ActiveItemsForSite(ctx, site)
}

func (gormItemStore) ClearInventoryFlags(ctx context.Context, site string, gtins []string) (int64, error) {
	return models.ClearInventoryFlags(ctx, site, gtins)
}

type gormOrderStore struct{}

func NewOrderStore() OrderStore { return gormOrderStore{} }

func (gormOrderStore) OpenOrdersReferencing(ctx context.Context, gtins map[string]bool) ([]models.PurchaseOrder, error) {
	return models.OpenOrdersReferencingGtins(ctx, gtins)
}

func (gormOrderStore) Save(ctx context.Context, order *models.PurchaseOrder) error {
	return models.SavePurchaseOrder(ctx, order)
}

type gormSiteDirectory struct{}

func NewSiteDirectory() SiteDirectory { return gormSiteDirectory{} }

func (gormSiteDirectory) All(ctx context.Context) ([]models.Site, error) {
	return models.AllSites(ctx)
}

func (gormSiteDirectory) FindByName(ctx context.Context, name string) (*models.Site, error) {
	site, err := models.FindSiteByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return site, err
}
