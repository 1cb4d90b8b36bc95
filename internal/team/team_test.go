package team

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPots(t *testing.T) {
	pots := DefaultPots()
	if len(pots) != PotCount {
		t.Fatalf("expected %d pots, got %d", PotCount, len(pots))
	}
	for i, p := range pots {
		if len(p) != PotSize {
			t.Errorf("pot %d: expected %d teams, got %d", i+1, PotSize, len(p))
		}
		for _, tm := range p {
			if tm.Stats.DefenseCapacity < DefenseFloor {
				t.Errorf("%s: defense %.2f below floor", tm.Name, tm.Stats.DefenseCapacity)
			}
		}
	}
	if err := Validate(pots); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

func TestDefaultPotsAreIndependentCopies(t *testing.T) {
	a := DefaultPots()
	b := DefaultPots()
	a[0][0].Stats.Level = 0
	if b[0][0].Stats.Level == 0 {
		t.Error("DefaultPots() returned shared teams")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Stats
		want Stats
	}{
		{"in range", Stats{5, 5, 5, 5}, Stats{5, 5, 5, 5}},
		{"above max", Stats{12, 11, 15, 10.5}, Stats{10, 10, 10, 10}},
		{"below min", Stats{-1, -2, -3, -4}, Stats{0, 0, DefenseFloor, 0}},
		{"weak defense", Stats{3, 3, 1.2, 3}, Stats{3, 3, DefenseFloor, 3}},
		{"nan", Stats{math.NaN(), 1, 3, 1}, Stats{0, 1, 3, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tm := &Team{Name: "  X  ", Stats: tc.in}
			Normalize(tm)
			if tm.Stats != tc.want {
				t.Errorf("got %+v, want %+v", tm.Stats, tc.want)
			}
			if tm.Name != "X" {
				t.Errorf("name not trimmed: %q", tm.Name)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	a := &Team{Name: "A"}
	b := &Team{Name: "B"}

	if err := Validate([]Pot{{a}, {b}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate([]Pot{{a}, {a}}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
	if err := Validate([]Pot{{&Team{}}}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestLoadPotsFormats(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "pots.json")
	jsonBody := `[{"name":"Pot 1","teams":[{"name":"Lima","stats":{"level":7,"goalCapacity":6,"defenseCapacity":1,"hierarchy":8}}]}]`
	if err := os.WriteFile(jsonPath, []byte(jsonBody), 0o644); err != nil {
		t.Fatal(err)
	}
	pots, err := LoadPots(jsonPath)
	if err != nil {
		t.Fatalf("LoadPots(json) failed: %v", err)
	}
	if got := pots[0][0].Stats.DefenseCapacity; got != DefenseFloor {
		t.Errorf("expected defense floor applied, got %.2f", got)
	}

	yamlPath := filepath.Join(dir, "pots.yml")
	out, err := MarshalYAML(pots)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, out, 0o644); err != nil {
		t.Fatal(err)
	}
	again, err := LoadPots(yamlPath)
	if err != nil {
		t.Fatalf("LoadPots(yaml) failed: %v", err)
	}
	if *again[0][0] != *pots[0][0] {
		t.Errorf("yaml reload mismatch: %+v vs %+v", again[0][0], pots[0][0])
	}

	if _, err := LoadPots(filepath.Join(dir, "pots.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	for name, body := range map[string]string{
		"blank.yaml": "- name: Pot 1\n  teams:\n  -\n  - name: A\n",
		"null.json":  `[{"name":"Pot 1","teams":[null,{"name":"A"}]}]`,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPots(path); !errors.Is(err, ErrEmptyName) {
			t.Errorf("%s: expected ErrEmptyName, got %v", name, err)
		}
	}

	txt := filepath.Join(dir, "pots.toml")
	os.WriteFile(txt, []byte("x"), 0o644)
	if _, err := LoadPots(txt); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestFind(t *testing.T) {
	pots := DefaultPots()
	tm, ok := Find(pots, "universitario")
	if !ok || tm.Name != "Universitario" {
		t.Fatalf("Find() = %v, %v", tm, ok)
	}
	if _, ok := Find(pots, "nobody"); ok {
		t.Error("Find() matched a missing team")
	}
}

func TestAll(t *testing.T) {
	if got := len(All(DefaultPots())); got != PotCount*PotSize {
		t.Errorf("All() = %d teams", got)
	}
}
