package possync_test

import (
	"context"
	"sort"
	"testing"

	"bitbucket.org/mmdatafocus/station_backend/models"
	"bitbucket.org/mmdatafocus/station_backend/possync"
)

func intPtr(n int) *int { return &n }

func TestResyncItemCategoriesCorrectsMismatchedRows(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{itemCategories: map[string]int{
		"012345678905": 10, // already correct
		"036000291452": 20, // changed externally
		"076808516135": 35, // set for the first time
	}}
	items := &fakeItemStore{items: []models.Item{
		{Gtin: "012345678905", Site: "Oliver", CategoryNumber: intPtr(10)},
		{Gtin: "036000291452", Site: "Oliver", CategoryNumber: intPtr(12)},
		{Gtin: "036000291452", Site: "Mill Road", CategoryNumber: intPtr(12)},
		{Gtin: "076808516135", Site: "Oliver"},
	}}
	report := possync.NewRunReport()

	result, err := possync.ResyncItemCategories(ctx, source, items, 0, 2, report)
	if err != nil {
		t.Fatalf("ResyncItemCategories: %v", err)
	}

	if len(result.Updated) != 2 || result.Updated["036000291452"] != 20 || result.Updated["076808516135"] != 35 {
		t.Fatalf("unexpected updated set: %v", result.Updated)
	}
	if len(result.NotFound) != 0 {
		t.Fatalf("unexpected not-found keys: %v", result.NotFound)
	}

	// Every site's row for a changed key carries the new number.
	for _, site := range []string{"Oliver", "Mill Road"} {
		row := items.find("036000291452", site)
		if row == nil || row.CategoryNumber == nil || *row.CategoryNumber != 20 {
			t.Fatalf("site %s row not corrected: %+v", site, row)
		}
	}
	if row := items.find("076808516135", "Oliver"); row.CategoryNumber == nil || *row.CategoryNumber != 35 {
		t.Fatalf("unset category not filled in: %+v", row)
	}
	if report.ItemChanges.Updated != 2 {
		t.Fatalf("expected 2 updated keys reported; got %d", report.ItemChanges.Updated)
	}
}

func TestResyncItemCategoriesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{itemCategories: map[string]int{"036000291452": 20}}
	items := &fakeItemStore{items: []models.Item{
		{Gtin: "036000291452", Site: "Oliver", CategoryNumber: intPtr(12)},
	}}

	first, err := possync.ResyncItemCategories(ctx, source, items, 0, 10, possync.NewRunReport())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.Updated) != 1 {
		t.Fatalf("first run expected one update; got %v", first.Updated)
	}

	second, err := possync.ResyncItemCategories(ctx, source, items, 0, 10, possync.NewRunReport())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Updated) != 0 {
		t.Fatalf("second run scheduled writes: %v", second.Updated)
	}
}

func TestResyncItemCategoriesLeavesUnknownKeysAlone(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{itemCategories: map[string]int{}}
	items := &fakeItemStore{items: []models.Item{
		{Gtin: "012345678905", Site: "Oliver", CategoryNumber: intPtr(10)},
	}}
	report := possync.NewRunReport()

	result, err := possync.ResyncItemCategories(ctx, source, items, 0, 10, report)
	if err != nil {
		t.Fatalf("ResyncItemCategories: %v", err)
	}

	if len(result.Updated) != 0 {
		t.Fatalf("unexpected updates: %v", result.Updated)
	}
	if len(result.NotFound) != 1 || result.NotFound[0] != "012345678905" {
		t.Fatalf("expected the key bucketed as not found; got %v", result.NotFound)
	}
	if row := items.find("012345678905", "Oliver"); row.CategoryNumber == nil || *row.CategoryNumber != 10 {
		t.Fatalf("existing category was touched: %+v", row)
	}
}

func TestResyncItemCategoriesSurvivesLookupBatchFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{failItemLookups: true}
	items := &fakeItemStore{items: []models.Item{
		{Gtin: "012345678905", Site: "Oliver", CategoryNumber: intPtr(10)},
		{Gtin: "036000291452", Site: "Oliver", CategoryNumber: intPtr(12)},
		{Gtin: "076808516135", Site: "Oliver", CategoryNumber: intPtr(14)},
	}}
	report := possync.NewRunReport()

	result, err := possync.ResyncItemCategories(ctx, source, items, 0, 2, report)
	if err != nil {
		t.Fatalf("ResyncItemCategories: %v", err)
	}

	// Two batches of sizes 2 and 1, both attempted despite the first failing.
	if source.itemLookupCalls != 2 {
		t.Fatalf("expected 2 lookup attempts; got %d", source.itemLookupCalls)
	}
	if len(result.Updated) != 0 {
		t.Fatalf("unexpected updates after failed lookups: %v", result.Updated)
	}
	got := append([]string(nil), result.NotFound...)
	sort.Strings(got)
	want := []string{"012345678905", "036000291452", "076808516135"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("expected all keys in not-found; got %v", result.NotFound)
		}
	}
	if len(report.Errors) != 2 {
		t.Fatalf("expected one recorded error per batch; got %v", report.Errors)
	}
}

func TestResyncItemCategoriesFetchesLocalRowsOncePerBatch(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{itemCategories: map[string]int{
		"012345678905": 10,
		"036000291452": 20,
		"076808516135": 35,
	}}
	items := &fakeItemStore{items: []models.Item{
		{Gtin: "012345678905", Site: "Oliver", CategoryNumber: intPtr(10)},
		{Gtin: "036000291452", Site: "Oliver", CategoryNumber: intPtr(12)},
		{Gtin: "076808516135", Site: "Oliver", CategoryNumber: intPtr(14)},
	}}

	if _, err := possync.ResyncItemCategories(ctx, source, items, 0, 2, possync.NewRunReport()); err != nil {
		t.Fatalf("ResyncItemCategories: %v", err)
	}

	// Three keys at batch size 2 means two batches, one local fetch each.
	if items.representativeFetchCalls != 2 {
		t.Fatalf("expected 2 local fetches; got %d", items.representativeFetchCalls)
	}
}

func TestResyncItemCategoriesSurvivesLocalFetchFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{itemCategories: map[string]int{"036000291452": 20}}
	items := &fakeItemStore{
		items: []models.Item{
			{Gtin: "036000291452", Site: "Oliver", CategoryNumber: intPtr(12)},
		},
		failRepresentativeFetch: true,
	}
	report := possync.NewRunReport()

	result, err := possync.ResyncItemCategories(ctx, source, items, 0, 10, report)
	if err != nil {
		t.Fatalf("ResyncItemCategories: %v", err)
	}

	if len(result.Updated) != 0 {
		t.Fatalf("unexpected updates after failed fetch: %v", result.Updated)
	}
	if row := items.find("036000291452", "Oliver"); *row.CategoryNumber != 12 {
		t.Fatalf("row touched after failed fetch: %+v", row)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected one recorded fetch error; got %v", report.Errors)
	}
}

func TestResyncItemCategoriesDropsFailedWritesFromChangeSet(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{itemCategories: map[string]int{
		"036000291452": 20,
		"076808516135": 35,
	}}
	items := &fakeItemStore{
		items: []models.Item{
			{Gtin: "036000291452", Site: "Oliver", CategoryNumber: intPtr(12)},
			{Gtin: "076808516135", Site: "Oliver", CategoryNumber: intPtr(14)},
		},
		failUpdateGtins: map[string]bool{"036000291452": true},
	}
	report := possync.NewRunReport()

	result, err := possync.ResyncItemCategories(ctx, source, items, 0, 10, report)
	if err != nil {
		t.Fatalf("ResyncItemCategories: %v", err)
	}

	if _, ok := result.Updated["036000291452"]; ok {
		t.Fatalf("failed write still in the change set: %v", result.Updated)
	}
	if result.Updated["076808516135"] != 35 {
		t.Fatalf("sibling write missing from the change set: %v", result.Updated)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected one recorded error; got %v", report.Errors)
	}
}
