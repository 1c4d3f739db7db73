package export_test

import (
	"reflect"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/export"
)

func TestFlattenFlatDocumentIsIdentity(t *testing.T) {
	doc := export.Object(
		export.Field{Key: "gtin", Value: export.Text("012345678905")},
		export.Field{Key: "qty", Value: export.Number(42)},
		export.Field{Key: "active", Value: export.Bool(true)},
	)

	row := export.Flatten(doc)

	want := export.FlatRow{
		"gtin":   "012345678905",
		"qty":    float64(42),
		"active": true,
	}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("expected %v; got %v", want, row)
	}
}

func TestFlattenNestedObjectsPrefixWithParentKey(t *testing.T) {
	doc := export.Object(
		export.Field{Key: "a", Value: export.Object(
			export.Field{Key: "b", Value: export.Number(1)},
			export.Field{Key: "c", Value: export.Object(
				export.Field{Key: "d", Value: export.Text("deep")},
			)},
		)},
	)

	row := export.Flatten(doc)

	if row["a_b"] != float64(1) {
		t.Fatalf("expected a_b=1; got %v", row)
	}
	if row["a_c_d"] != "deep" {
		t.Fatalf("expected a_c_d=deep; got %v", row)
	}
	if _, ok := row["a"]; ok {
		t.Fatalf("parent key leaked into the row: %v", row)
	}
}

func TestFlattenOmitsNullsAndVersionField(t *testing.T) {
	doc := export.Object(
		export.Field{Key: "gtin", Value: export.Text("012345678905")},
		export.Field{Key: "vendor", Value: export.Null()},
		export.Field{Key: "__v", Value: export.Number(7)},
		export.Field{Key: "nested", Value: export.Object(
			export.Field{Key: "__v", Value: export.Number(3)},
			export.Field{Key: "gone", Value: export.Null()},
		)},
	)

	row := export.Flatten(doc)

	if len(row) != 1 || row["gtin"] != "012345678905" {
		t.Fatalf("expected only gtin to survive; got %v", row)
	}
}

func TestFlattenPrimitiveListsJoinWithPipe(t *testing.T) {
	doc := export.Object(
		export.Field{Key: "codes", Value: export.List(
			export.Text("4002"),
			export.Text("4003"),
			export.Number(17),
		)},
	)

	row := export.Flatten(doc)

	if row["codes"] != "4002|4003|17" {
		t.Fatalf("expected joined list; got %v", row["codes"])
	}
}

func TestFlattenObjectListsSerializeAsJSON(t *testing.T) {
	doc := export.Object(
		export.Field{Key: "items", Value: export.List(
			export.Object(
				export.Field{Key: "gtin", Value: export.Text("012345678905")},
				export.Field{Key: "qty", Value: export.Number(6)},
			),
		)},
	)

	row := export.Flatten(doc)

	cell, ok := row["items"].(string)
	if !ok {
		t.Fatalf("expected a JSON string cell; got %T", row["items"])
	}
	want := `[{"gtin":"012345678905","qty":6}]`
	if cell != want {
		t.Fatalf("expected %s; got %s", want, cell)
	}
}

func TestFlattenTemporalAndIdentifierScalars(t *testing.T) {
	stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	doc := export.Object(
		export.Field{Key: "id", Value: export.Identifier("65f1c0de12ab34cd56ef7890")},
		export.Field{Key: "created_at", Value: export.Temporal(stamp)},
	)

	row := export.Flatten(doc)

	if row["id"] != "65f1c0de12ab34cd56ef7890" {
		t.Fatalf("expected stringified identifier; got %v", row["id"])
	}
	if row["created_at"] != "2026-03-14T09:26:53Z" {
		t.Fatalf("expected RFC3339 timestamp; got %v", row["created_at"])
	}
}

func TestFlattenDoesNotMutateInput(t *testing.T) {
	doc := export.Object(
		export.Field{Key: "a", Value: export.Object(
			export.Field{Key: "b", Value: export.Number(1)},
		)},
	)
	beforeJSON, err := doc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	_ = export.Flatten(doc)
	_ = export.Flatten(doc)

	afterJSON, err := doc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(beforeJSON) != string(afterJSON) {
		t.Fatalf("document mutated by flattening: %s != %s", beforeJSON, afterJSON)
	}
}

func TestDecodeJSONValuePreservesKeyOrder(t *testing.T) {
	raw := []byte(`{"z":1,"m":{"b":2,"a":3},"a":4}`)

	doc, err := export.DecodeJSONValue(raw)
	if err != nil {
		t.Fatalf("DecodeJSONValue: %v", err)
	}

	if got := doc.Keys(); !reflect.DeepEqual(got, []string{"z", "m", "a"}) {
		t.Fatalf("top-level key order lost: %v", got)
	}
	nested, ok := doc.Get("m")
	if !ok {
		t.Fatalf("missing nested object")
	}
	if got := nested.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("nested key order lost: %v", got)
	}

	reencoded, err := doc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(reencoded) != string(raw) {
		t.Fatalf("round trip changed the document: %s", reencoded)
	}
}
