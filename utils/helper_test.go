package utils_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/utils"
)

func TestUniqueSliceKeepsFirstOccurrence(t *testing.T) {
	got := utils.UniqueSlice([]string{"gtin", "name", "gtin", "qty", "name"})
	want := []string{"gtin", "name", "qty"}
	if len(got) != len(want) {
		t.Fatalf("expected %v; got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v; got %v", want, got)
		}
	}
}

func TestConvertToLocalTimeFallsBackOnBadZone(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := utils.ConvertToLocalTime(ts, "Not/AZone"); !got.Equal(ts) || got.Location() != time.UTC {
		t.Fatalf("bad zone must return the input unchanged; got %v", got)
	}
	if got := utils.ConvertToLocalTime(ts, "UTC"); !got.Equal(ts) {
		t.Fatalf("UTC conversion changed the instant: %v", got)
	}
}

func TestGenerateUniqueFilenameIsUnique(t *testing.T) {
	a := utils.GenerateUniqueFilename()
	b := utils.GenerateUniqueFilename()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty names; got %q and %q", a, b)
	}
}
