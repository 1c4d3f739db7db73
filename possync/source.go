package possync

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategorySource is the bulk lookup contract against the POS back-office.
// Absence from a result map means "not found"; the BOS replica never emits
// explicit nulls, so absence is the only not-found signal.
type CategorySource interface {
	// LookupCategoryNumbers returns the external name→number registry.
	// An empty names list returns the full set.
	LookupCategoryNumbers(ctx context.Context, names []string) (map[string]int, error)

	// LookupCategoriesForKeys resolves the authoritative category number
	// for each GTIN. Callers batch the key list themselves.
	LookupCategoriesForKeys(ctx context.Context, keys []string) (map[string]int, error)

	// LookupInactiveFlags maps a GTIN to its equivalent scan codes if and
	// only if the BOS master list flags it inactive.
	LookupInactiveFlags(ctx context.Context, keys []string) (map[string][]string, error)

	// LookupOnHand reports the current on-hand quantity for one scan code
	// at a station, nil when the station has no record of it.
	LookupOnHand(ctx context.Context, code string, stationKey string) (*decimal.Decimal, error)

	// LookupOnHandBulk is the batched form used for active-item checks.
	LookupOnHandBulk(ctx context.Context, codes []string, stationKey string) (map[string]decimal.Decimal, error)
}

// bosSource reads the BOS MySQL reporting replica directly. All queries are
// read-only and keyed by IN lists the callers keep under batch size.
type bosSource struct {
	db *gorm.DB
}

func NewBosSource(db *gorm.DB) CategorySource {
	return &bosSource{db: db}
}

type bosCategoryRow struct {
	Name       string `gorm:"column:name"`
	CategoryNo int    `gorm:"column:category_no"`
}

func (s *bosSource) LookupCategoryNumbers(ctx context.Context, names []string) (map[string]int, error) {
	query := s.db.WithContext(ctx).
		Table("pos_categories").
		Select("name, category_no")
	if len(names) > 0 {
		query = query.Where("name IN ?", names)
	}

	var rows []bosCategoryRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[string]int, len(rows))
	for _, row := range rows {
		result[row.Name] = row.CategoryNo
	}
	return result, nil
}

type bosItemRow struct {
	Upc        string `gorm:"column:upc"`
	CategoryNo int    `gorm:"column:category_no"`
}

func (s *bosSource) LookupCategoriesForKeys(ctx context.Context, keys []string) (map[string]int, error) {
	if len(keys) == 0 {
		return map[string]int{}, nil
	}

	var rows []bosItemRow
	err := s.db.WithContext(ctx).
		Table("pos_items").
		Select("upc, category_no").
		Where("upc IN ?", keys).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int, len(rows))
	for _, row := range rows {
		result[row.Upc] = row.CategoryNo
	}
	return result, nil
}

type bosScanCodeRow struct {
	Upc      string `gorm:"column:upc"`
	ScanCode string `gorm:"column:scan_code"`
}

func (s *bosSource) LookupInactiveFlags(ctx context.Context, keys []string) (map[string][]string, error) {
	if len(keys) == 0 {
		return map[string][]string{}, nil
	}

	var rows []bosScanCodeRow
	err := s.db.WithContext(ctx).
		Table("pos_item_codes").
		Select("pos_item_codes.upc, pos_item_codes.scan_code").
		Joins("JOIN pos_items ON pos_items.upc = pos_item_codes.upc").
		Where("pos_items.upc IN ? AND pos_items.active = 0", keys).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string][]string)
	for _, row := range rows {
		result[row.Upc] = append(result[row.Upc], row.ScanCode)
	}
	return result, nil
}

type bosOnHandRow struct {
	ScanCode string          `gorm:"column:scan_code"`
	Qty      decimal.Decimal `gorm:"column:qty"`
}

func (s *bosSource) LookupOnHand(ctx context.Context, code string, stationKey string) (*decimal.Decimal, error) {
	var rows []bosOnHandRow
	err := s.db.WithContext(ctx).
		Table("pos_on_hand").
		Select("scan_code, qty").
		Where("scan_code = ? AND station_key = ?", code, stationKey).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].Qty, nil
}

func (s *bosSource) LookupOnHandBulk(ctx context.Context, codes []string, stationKey string) (map[string]decimal.Decimal, error) {
	if len(codes) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	var rows []bosOnHandRow
	err := s.db.WithContext(ctx).
		Table("pos_on_hand").
		Select("scan_code, qty").
		Where("scan_code IN ? AND station_key = ?", codes, stationKey).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		result[row.ScanCode] = row.Qty
	}
	return result, nil
}
