package formation

import (
	"errors"
	"strings"
	"testing"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() returned error: %v", err)
	}
	return c
}

// TestEveryAgeGroupHasFormations tests that each configured age group resolves
// to a non-empty set declared for its own format.
func TestEveryAgeGroupHasFormations(t *testing.T) {
	c := mustDefault(t)

	groups := c.AgeGroups()
	if len(groups) != 12 {
		t.Fatalf("expected 12 age groups (U7..U18), got %d", len(groups))
	}

	for _, ag := range groups {
		set, err := c.GetFormations(ag.Name)
		if err != nil {
			t.Fatalf("GetFormations(%s) returned error: %v", ag.Name, err)
		}
		if set.Format != ag.Format {
			t.Errorf("%s: format = %s, want %s", ag.Name, set.Format, ag.Format)
		}
		if len(set.Formations) == 0 {
			t.Errorf("%s: empty formation set", ag.Name)
		}
		for _, fm := range set.Formations {
			if len(fm.Positions) != set.Players {
				t.Errorf("%s/%s: %d positions, want %d", ag.Name, fm.Name, len(fm.Positions), set.Players)
			}
		}
	}
}

// TestGetFormationsU13 tests the concrete U13 mapping.
func TestGetFormationsU13(t *testing.T) {
	c := mustDefault(t)

	set, err := c.GetFormations("U13")
	if err != nil {
		t.Fatalf("GetFormations(U13) returned error: %v", err)
	}
	if set.Format != "11v11" || set.Players != 11 || set.MaxSubstitutes != 7 {
		t.Errorf("U13 = %s/%d/%d, want 11v11/11/7", set.Format, set.Players, set.MaxSubstitutes)
	}
	if set.Formations[0].Name != "4-4-2" {
		t.Errorf("first formation = %s, want 4-4-2 (configured order)", set.Formations[0].Name)
	}
	for _, fm := range set.Formations {
		if fm.Name == "5-3-2" {
			t.Error("5-3-2 should not be offered to U13")
		}
	}
}

// TestGetFormationsUnknown tests that unknown age groups fail with NotFound.
func TestGetFormationsUnknown(t *testing.T) {
	c := mustDefault(t)

	for _, ag := range []string{"U6", "U19", "", "u13"} {
		if _, err := c.GetFormations(ag); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("GetFormations(%q) error = %v, want ErrNotFound", ag, err)
		}
	}
}

// TestFormationLookup tests single formation lookup and label defaults.
func TestFormationLookup(t *testing.T) {
	c := mustDefault(t)

	fm, err := c.Formation("11v11", "4-4-2")
	if err != nil {
		t.Fatalf("Formation returned error: %v", err)
	}
	labels := map[string]string{}
	for _, p := range fm.Positions {
		labels[p.ID] = p.Label
	}
	if labels["CB1"] != "CB" || labels["ST2"] != "ST" || labels["GK"] != "GK" {
		t.Errorf("unexpected default labels: %v", labels)
	}
	if !fm.Has("RM") || fm.Has("LW") {
		t.Error("Has() disagrees with the 4-4-2 layout")
	}

	fm, err = c.Formation("8v8", "2-4-1")
	if err != nil {
		t.Fatalf("Formation returned error: %v", err)
	}
	for _, p := range fm.Positions {
		if p.ID == "LCM" && p.Label != "CM" {
			t.Errorf("LCM label = %s, want explicit CM", p.Label)
		}
	}

	if _, err := c.Formation("11v11", "2-3-5"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown formation error = %v, want ErrNotFound", err)
	}
	if _, err := c.Formation("12v12", "4-4-2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown format error = %v, want ErrNotFound", err)
	}
}

// TestParseRejectsInvalidTables tests load-time validation.
func TestParseRejectsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"position count": `
formats:
  - name: 2v2
    players: 2
    formations:
      - name: "1-1"
        positions:
          - {id: GK, x: 50, y: 90}
`,
		"duplicate id": `
formats:
  - name: 2v2
    players: 2
    formations:
      - name: "1-1"
        positions:
          - {id: GK, x: 50, y: 90}
          - {id: GK, x: 50, y: 20}
`,
		"off pitch": `
formats:
  - name: 1v1
    players: 1
    formations:
      - name: "0"
        positions:
          - {id: GK, x: 150, y: 90}
`,
		"unknown formation in age group": `
formats:
  - name: 1v1
    players: 1
    formations:
      - name: "0"
        positions:
          - {id: GK, x: 50, y: 90}
age_groups:
  - name: U5
    format: 1v1
    formations: ["1"]
`,
	}

	for name, doc := range cases {
		if _, err := Parse([]byte(strings.TrimSpace(doc))); err == nil {
			t.Errorf("%s: expected Parse to fail", name)
		}
	}
}

// TestAccessorsReturnCopies tests that mutating returned values leaves the catalog untouched.
func TestAccessorsReturnCopies(t *testing.T) {
	c := mustDefault(t)

	formats := c.Formats()
	formats[0].Formations[0].Positions[0].ID = "changed"
	formats[0].Formations[0].Name = "changed"
	ags := c.AgeGroups()
	ags[0].Formations[0] = "changed"
	f, err := c.Format(formats[0].Name)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	f.Formations[0].Positions[0].Label = "changed"
	fm, err := c.Formation(f.Name, f.Formations[0].Name)
	if err != nil {
		t.Fatalf("Formation returned error: %v", err)
	}
	fm.Positions[0].X = -1

	again := c.Formats()
	first := again[0].Formations[0]
	if first.Name == "changed" || first.Positions[0].ID == "changed" ||
		first.Positions[0].Label == "changed" || first.Positions[0].X == -1 {
		t.Errorf("catalog formation was mutated: %+v", first.Positions[0])
	}
	if c.AgeGroups()[0].Formations[0] == "changed" {
		t.Error("catalog age group was mutated")
	}
	set, err := c.GetFormations("U13")
	if err != nil {
		t.Fatalf("GetFormations returned error: %v", err)
	}
	set.Formations[0].Positions[0].ID = "changed"
	if again, _ := c.GetFormations("U13"); again.Formations[0].Positions[0].ID == "changed" {
		t.Error("GetFormations leaked catalog positions")
	}
}
