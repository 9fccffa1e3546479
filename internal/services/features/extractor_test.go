package features

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"CourtCast/internal/domain/models"
)

func fieldIndex(t *testing.T, name string) int {
	t.Helper()
	for i, f := range Schema().Fields {
		if f == name {
			return i
		}
	}
	t.Fatalf("unknown field %q", name)
	return -1
}

func fullMatch() models.MatchContext {
	return models.MatchContext{
		Event: "Cincinnati Open",
		Competitor1: models.Competitor{
			ID: "a", Name: "Alpha", Ranking: 1, Age: 27, Experience: 9,
			Earnings: 4_000_000, Height: 1.88, Weight: 85, MajorTitles: 2,
			RecentResults: []bool{true, true, false, true},
		},
		Competitor2: models.Competitor{
			ID: "b", Name: "Beta", Ranking: 7, Age: 24, Experience: 5,
			Earnings: 1_000_000, Height: 1.93, Weight: 88, MajorTitles: 0,
			RecentResults: []bool{false, true, false, false},
		},
		Surface: models.SurfaceHard,
		Tier:    models.TierMasters,
		BestOf:  3,
		Date:    time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
	}
}

func hardH2H() models.HeadToHead {
	meetings := make([]models.Meeting, 0, 9)
	for i := 0; i < 4; i++ {
		meetings = append(meetings, models.Meeting{Winner: 1, Surface: models.SurfaceHard})
	}
	for i := 0; i < 5; i++ {
		meetings = append(meetings, models.Meeting{Winner: 2, Surface: models.SurfaceHard})
	}
	return models.HeadToHead{Meetings: meetings}
}

func TestSchemaShape(t *testing.T) {
	s := Schema()
	if s.Version != "v1" {
		t.Errorf("version = %q", s.Version)
	}
	if len(s.Fields) != 27 {
		t.Errorf("fields = %d, want 27", len(s.Fields))
	}
	if s.Fields[0] != "p1_ranking" || s.Fields[len(s.Fields)-1] != "best_of_five" {
		t.Errorf("field order changed: first %q last %q", s.Fields[0], s.Fields[len(s.Fields)-1])
	}

	// callers must not be able to corrupt the canonical order
	s.Fields[0] = "corrupted"
	if Schema().Fields[0] != "p1_ranking" {
		t.Error("Schema returns a shared slice")
	}
}

func TestExtractFullInput(t *testing.T) {
	e := NewTennisExtractor()
	fv, _, err := e.Extract(fullMatch(), hardH2H())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fv.SchemaVersion != "v1" || len(fv.Values) != 27 {
		t.Fatalf("vector = %q/%d", fv.SchemaVersion, len(fv.Values))
	}

	want := map[string]float64{
		"p1_ranking":          1,
		"p2_ranking":          7,
		"ranking_diff":        -6,
		"experience_diff":     4,
		"majors_diff":         2,
		"h2h_total":           9,
		"h2h_p1_wins":         4,
		"h2h_p2_wins":         5,
		"h2h_surface_p1_wins": 4,
		"h2h_surface_p2_wins": 5,
		"p1_recent_form":      0.75,
		"p2_recent_form":      0.25,
		"surface_code":        0,
		"tier_code":           3,
		"best_of_five":        0,
	}
	for field, v := range want {
		if got := fv.Values[fieldIndex(t, field)]; got != v {
			t.Errorf("%s = %v, want %v", field, got, v)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewTennisExtractor()
	a, _, err := e.Extract(fullMatch(), hardH2H())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, _, err := e.Extract(fullMatch(), hardH2H())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different vectors")
	}
}

func TestExtractNeutralDefaults(t *testing.T) {
	e := NewTennisExtractor()
	mc := models.MatchContext{
		Competitor1: models.Competitor{Name: "Alpha"},
		Competitor2: models.Competitor{Name: "Beta"},
		Surface:     models.SurfaceClay,
	}
	fv, caveats, err := e.Extract(mc, models.HeadToHead{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got := fv.Values[fieldIndex(t, "p1_ranking")]; got != 100 {
		t.Errorf("p1_ranking = %v, want neutral 100", got)
	}
	if got := fv.Values[fieldIndex(t, "ranking_ratio")]; got != 1 {
		t.Errorf("ranking_ratio = %v, want 1", got)
	}
	if got := fv.Values[fieldIndex(t, "p1_recent_form")]; got != 0.5 {
		t.Errorf("p1_recent_form = %v, want neutral 0.5", got)
	}

	joined := strings.Join(caveats, "; ")
	for _, want := range []string{
		"ranking missing for Alpha",
		"ranking missing for Beta",
		"no prior head-to-head meetings",
		"no recent matches for Alpha",
		"no recent matches for Beta",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("caveats %q missing %q", joined, want)
		}
	}
}

func TestExtractFormWindow(t *testing.T) {
	e := NewTennisExtractor()
	mc := fullMatch()
	// 15 results, only the last 10 should count: 10 wins after 5 losses
	results := make([]bool, 0, 15)
	for i := 0; i < 5; i++ {
		results = append(results, false)
	}
	for i := 0; i < 10; i++ {
		results = append(results, true)
	}
	mc.Competitor1.RecentResults = results

	fv, _, err := e.Extract(mc, models.HeadToHead{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := fv.Values[fieldIndex(t, "p1_recent_form")]; got != 1.0 {
		t.Errorf("p1_recent_form = %v, want 1.0 over the last %d matches", got, formWindow)
	}
}
