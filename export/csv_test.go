package export_test

import (
	"bytes"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/station_backend/export"
)

func TestTabularExporterKeepsColumnsFixedAcrossDocuments(t *testing.T) {
	var buf bytes.Buffer
	exporter := export.NewTabularExporter(&buf, []string{"gtin", "name", "qty"})

	first := export.Object(
		export.Field{Key: "gtin", Value: export.Text("012345678905")},
		export.Field{Key: "name", Value: export.Text("Diesel Additive")},
		export.Field{Key: "qty", Value: export.Number(3)},
	)
	// Second document misses qty and carries a field outside the column list.
	second := export.Object(
		export.Field{Key: "gtin", Value: export.Text("036000291452")},
		export.Field{Key: "name", Value: export.Text("Trail Mix")},
		export.Field{Key: "vendor", Value: export.Text("Acme")},
	)

	if err := exporter.WriteDocument(first); err != nil {
		t.Fatalf("WriteDocument(first): %v", err)
	}
	if err := exporter.WriteDocument(second); err != nil {
		t.Fatalf("WriteDocument(second): %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows; got %q", lines)
	}
	if lines[0] != "gtin,name,qty" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "012345678905,Diesel Additive,3" {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	// Missing column renders empty; the extra vendor field is dropped.
	if lines[2] != "036000291452,Trail Mix," {
		t.Fatalf("unexpected second row: %q", lines[2])
	}
}

func TestTabularExporterEmptyCollectionStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	exporter := export.NewTabularExporter(&buf, []string{"gtin", "name"})

	if err := exporter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := buf.String(); got != "gtin,name\n" {
		t.Fatalf("expected bare header; got %q", got)
	}
}

func TestTabularExporterDropsRepeatedColumns(t *testing.T) {
	var buf bytes.Buffer
	exporter := export.NewTabularExporter(&buf, []string{"gtin", "name", "gtin"})

	doc := export.Object(
		export.Field{Key: "gtin", Value: export.Text("012345678905")},
		export.Field{Key: "name", Value: export.Text("Trail Mix")},
	)
	if err := exporter.WriteDocument(doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "gtin,name" {
		t.Fatalf("repeated column survived the header: %q", lines[0])
	}
	if lines[1] != "012345678905,Trail Mix" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestTabularExporterFlattensNestedDocuments(t *testing.T) {
	var buf bytes.Buffer
	exporter := export.NewTabularExporter(&buf, []string{"gtin", "vendor_name", "codes"})

	doc := export.Object(
		export.Field{Key: "gtin", Value: export.Text("012345678905")},
		export.Field{Key: "vendor", Value: export.Object(
			export.Field{Key: "name", Value: export.Text("Acme")},
		)},
		export.Field{Key: "codes", Value: export.List(export.Text("4002"), export.Text("4003"))},
	)
	if err := exporter.WriteDocument(doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row; got %q", lines)
	}
	if lines[1] != "012345678905,Acme,4002|4003" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}
