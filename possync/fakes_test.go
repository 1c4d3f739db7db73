package possync_test

import (
	"context"
	"errors"
	"sort"

	"bitbucket.org/mmdatafocus/station_backend/models"
	"github.com/shopspring/decimal"
)

// In-memory collaborators for the stage tests. They mirror the gorm-backed
// adapters closely enough that the stages cannot tell the difference.

type fakeSource struct {
	registry       map[string]int
	itemCategories map[string]int
	inactive       map[string][]string
	onHand         map[string]decimal.Decimal

	failItemLookups     bool
	failInactiveLookups bool
	failOnHandBulk      bool
	failOnHandCodes     map[string]bool

	itemLookupCalls int
}

func (s *fakeSource) LookupCategoryNumbers(ctx context.Context, names []string) (map[string]int, error) {
	if len(names) == 0 {
		out := make(map[string]int, len(s.registry))
		for name, number := range s.registry {
			out[name] = number
		}
		return out, nil
	}
	out := make(map[string]int)
	for _, name := range names {
		if number, ok := s.registry[name]; ok {
			out[name] = number
		}
	}
	return out, nil
}

func (s *fakeSource) LookupCategoriesForKeys(ctx context.Context, keys []string) (map[string]int, error) {
	s.itemLookupCalls++
	if s.failItemLookups {
		return nil, errors.New("bos replica unavailable")
	}
	out := make(map[string]int)
	for _, key := range keys {
		if number, ok := s.itemCategories[key]; ok {
			out[key] = number
		}
	}
	return out, nil
}

func (s *fakeSource) LookupInactiveFlags(ctx context.Context, keys []string) (map[string][]string, error) {
	if s.failInactiveLookups {
		return nil, errors.New("bos replica unavailable")
	}
	out := make(map[string][]string)
	for _, key := range keys {
		if codes, ok := s.inactive[key]; ok {
			out[key] = codes
		}
	}
	return out, nil
}

func (s *fakeSource) LookupOnHand(ctx context.Context, code string, stationKey string) (*decimal.Decimal, error) {
	if s.failOnHandCodes[code] {
		return nil, errors.New("on-hand query failed")
	}
	qty, ok := s.onHand[code]
	if !ok {
		return nil, nil
	}
	return &qty, nil
}

func (s *fakeSource) LookupOnHandBulk(ctx context.Context, codes []string, stationKey string) (map[string]decimal.Decimal, error) {
	if s.failOnHandBulk {
		return nil, errors.New("on-hand query failed")
	}
	out := make(map[string]decimal.Decimal)
	for _, code := range codes {
		if qty, ok := s.onHand[code]; ok {
			out[code] = qty
		}
	}
	return out, nil
}

type fakeCategoryStore struct {
	categories map[int]string
	failApply  map[int]bool
}

func newFakeCategoryStore(categories map[int]string) *fakeCategoryStore {
	out := make(map[int]string, len(categories))
	for number, name := range categories {
		out[number] = name
	}
	return &fakeCategoryStore{categories: out}
}

func (s *fakeCategoryStore) All(ctx context.Context) ([]models.Category, error) {
	numbers := make([]int, 0, len(s.categories))
	for number := range s.categories {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	out := make([]models.Category, 0, len(numbers))
	for _, number := range numbers {
		out = append(out, models.Category{Number: number, Name: s.categories[number]})
	}
	return out, nil
}

func (s *fakeCategoryStore) FindByNumber(ctx context.Context, number int) (*models.Category, error) {
	name, ok := s.categories[number]
	if !ok {
		return nil, nil
	}
	return &models.Category{Number: number, Name: name}, nil
}

func (s *fakeCategoryStore) Apply(ctx context.Context, inserts []models.Category, updates []models.Category, deleteNumbers []int) models.BulkWriteResult {
	var result models.BulkWriteResult
	opIndex := 0
	apply := func(number int, op func()) {
		if s.failApply[number] {
			result.Errors = append(result.Errors, models.BulkOpError{OpIndex: opIndex, Message: "write failed"})
		} else {
			op()
			result.Matched++
			result.Modified++
		}
		opIndex++
	}
	for _, category := range inserts {
		apply(category.Number, func() { s.categories[category.Number] = category.Name })
	}
	for _, category := range updates {
		apply(category.Number, func() { s.categories[category.Number] = category.Name })
	}
	for _, number := range deleteNumbers {
		apply(number, func() { delete(s.categories, number) })
	}
	return result
}

type fakeItemStore struct {
	items []models.Item

	failUpdateGtins          map[string]bool
	failFlagGtins            map[string]bool
	failRepresentativeFetch  bool
	representativeFetchCalls int
}

func (s *fakeItemStore) DistinctGtins(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var gtins []string
	for _, item := range s.items {
		if !seen[item.Gtin] {
			seen[item.Gtin] = true
			gtins = append(gtins, item.Gtin)
		}
	}
	sort.Strings(gtins)
	return gtins, nil
}

func (s *fakeItemStore) DistinctGtinsForSite(ctx context.Context, site string) ([]string, error) {
	seen := make(map[string]bool)
	var gtins []string
	for _, item := range s.items {
		if item.Site == site && !seen[item.Gtin] {
			seen[item.Gtin] = true
			gtins = append(gtins, item.Gtin)
		}
	}
	sort.Strings(gtins)
	return gtins, nil
}

func (s *fakeItemStore) RepresentativesByGtin(ctx context.Context, gtins []string) (map[string]models.Item, error) {
	s.representativeFetchCalls++
	if s.failRepresentativeFetch {
		return nil, errors.New("fetch failed")
	}
	out := make(map[string]models.Item)
	for _, gtin := range gtins {
		for i := range s.items {
			if s.items[i].Gtin == gtin {
				if _, ok := out[gtin]; !ok {
					out[gtin] = s.items[i]
				}
			}
		}
	}
	return out, nil
}

func (s *fakeItemStore) UpdateCategories(ctx context.Context, changes map[string]int, order []string) models.BulkWriteResult {
	var result models.BulkWriteResult
	for opIndex, gtin := range order {
		number, ok := changes[gtin]
		if !ok {
			continue
		}
		if s.failUpdateGtins[gtin] {
			result.Errors = append(result.Errors, models.BulkOpError{OpIndex: opIndex, Message: "write failed"})
			continue
		}
		for i := range s.items {
			if s.items[i].Gtin == gtin {
				number := number
				s.items[i].CategoryNumber = &number
				result.Matched++
				result.Modified++
			}
		}
	}
	return result
}

func (s *fakeItemStore) UpdateFlags(ctx context.Context, site string, updates []models.ItemFlagUpdate) models.BulkWriteResult {
	var result models.BulkWriteResult
	for opIndex, update := range updates {
		if s.failFlagGtins[update.Gtin] {
			result.Errors = append(result.Errors, models.BulkOpError{OpIndex: opIndex, Message: "write failed"})
			continue
		}
		for i := range s.items {
			if s.items[i].Site == site && s.items[i].Gtin == update.Gtin {
				s.items[i].Active = update.Active
				s.items[i].InventoryExists = update.InventoryExists
				result.Matched++
				result.Modified++
			}
		}
	}
	return result
}

func (s *fakeItemStore) ActiveItems(ctx context.Context, site string) ([]models.Item, error) {
	var out []models.Item
	for _, item := range s.items {
		if item.Site == site && item.Active {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gtin < out[j].Gtin })
	return out, nil
}

func (s *fakeItemStore) ClearInventoryFlags(ctx context.Context, site string, gtins []string) (int64, error) {
	var cleared int64
	for _, gtin := range gtins {
		for i := range s.items {
			if s.items[i].Site == site && s.items[i].Gtin == gtin && s.items[i].InventoryExists {
				s.items[i].InventoryExists = false
				cleared++
			}
		}
	}
	return cleared, nil
}

func (s *fakeItemStore) find(gtin string, site string) *models.Item {
	for i := range s.items {
		if s.items[i].Gtin == gtin && s.items[i].Site == site {
			return &s.items[i]
		}
	}
	return nil
}

type fakeOrderStore struct {
	orders []models.PurchaseOrder

	failSaveIDs map[uint]bool
	saveCalls   int
}

func (s *fakeOrderStore) OpenOrdersReferencing(ctx context.Context, gtins map[string]bool) ([]models.PurchaseOrder, error) {
	var out []models.PurchaseOrder
	for _, order := range s.orders {
		if order.Status == models.OrderStatusOpen && referencesAny(&order, gtins) {
			out = append(out, order)
		}
	}
	return out, nil
}

func referencesAny(order *models.PurchaseOrder, gtins map[string]bool) bool {
	for _, category := range order.Categories() {
		for _, item := range category.Items {
			if gtins[item.Gtin] {
				return true
			}
		}
	}
	return false
}

func (s *fakeOrderStore) Save(ctx context.Context, order *models.PurchaseOrder) error {
	s.saveCalls++
	if s.failSaveIDs[order.ID] {
		return errors.New("write failed")
	}
	for i := range s.orders {
		if s.orders[i].ID == order.ID {
			s.orders[i].CategoriesJSON = order.CategoriesJSON
			return nil
		}
	}
	return errors.New("order not found")
}

func (s *fakeOrderStore) find(id uint) *models.PurchaseOrder {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return &s.orders[i]
		}
	}
	return nil
}

type fakeSiteDirectory struct {
	sites []models.Site
}

func (s *fakeSiteDirectory) All(ctx context.Context) ([]models.Site, error) {
	return s.sites, nil
}

func (s *fakeSiteDirectory) FindByName(ctx context.Context, name string) (*models.Site, error) {
	for i := range s.sites {
		if s.sites[i].Name == name {
			return &s.sites[i], nil
		}
	}
	return nil, nil
}
