package possync

import (
	"context"
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/station_backend/models"
)

// SyncCategoryRegistry reconciles the local category list against the BOS
// registry. The category number is the stable identifier; the external name
// is authoritative for it. Inserts, name updates, and deletes are applied
// as one unordered bulk, with per-op failures surfaced on the report.
func SyncCategoryRegistry(ctx context.Context, source CategorySource, store CategoryStore, report *RunReport) error {
	external, err := source.LookupCategoryNumbers(ctx, nil)
	if err != nil {
		return fmt.Errorf("lookup external categories: %w", err)
	}

	local, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("load local categories: %w", err)
	}

	externalByNumber := make(map[int]string, len(external))
	for name, number := range external {
		externalByNumber[number] = name
	}
	localByNumber := make(map[int]models.Category, len(local))
	for _, category := range local {
		localByNumber[category.Number] = category
	}

	var inserts, updates []models.Category
	var deletes []int

	for _, number := range sortedNumbers(externalByNumber) {
		name := externalByNumber[number]
		existing, ok := localByNumber[number]
		if !ok {
			inserts = append(inserts, models.Category{Number: number, Name: name})
			continue
		}
		if existing.Name != name {
			updates = append(updates, models.Category{Number: number, Name: name})
		}
	}

	for _, category := range local {
		if _, ok := externalByNumber[category.Number]; !ok {
			deletes = append(deletes, category.Number)
		}
	}
	sort.Ints(deletes)

	result := store.Apply(ctx, inserts, updates, deletes)
	for _, opErr := range result.Errors {
		report.AddError(StageRegistry, fmt.Sprintf("bulk op %d: %s", opErr.OpIndex, opErr.Message))
	}

	for _, category := range inserts {
		report.CategoryChanges.Added = append(report.CategoryChanges.Added, category.Number)
	}
	for _, category := range updates {
		report.CategoryChanges.Updated = append(report.CategoryChanges.Updated, category.Number)
	}
	report.CategoryChanges.Deleted = append(report.CategoryChanges.Deleted, deletes...)

	return nil
}

func sortedNumbers(m map[int]string) []int {
	numbers := make([]int, 0, len(m))
	for number := range m {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}
