package tags

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		requireCount bool
		want         Entry
		wantErr      error
	}{
		{
			name:         "species with count",
			raw:          "crow,3",
			requireCount: true,
			want:         Entry{Species: "crow", Count: 3},
		},
		{
			name:         "count ignored for removal",
			raw:          "crow,0",
			requireCount: false,
			want:         Entry{Species: "crow"},
		},
		{
			name:         "missing count for removal",
			raw:          "pigeon",
			requireCount: false,
			want:         Entry{Species: "pigeon"},
		},
		{
			name:         "species with spaces",
			raw:          "american robin,2",
			requireCount: true,
			want:         Entry{Species: "american robin", Count: 2},
		},
		{
			name:         "empty species",
			raw:          ",3",
			requireCount: true,
			wantErr:      ErrEmptySpecies,
		},
		{
			name:         "zero count",
			raw:          "crow,0",
			requireCount: true,
			wantErr:      ErrInvalidCount,
		},
		{
			name:         "negative count",
			raw:          "crow,-1",
			requireCount: true,
			wantErr:      ErrInvalidCount,
		},
		{
			name:         "non-integer count",
			raw:          "crow,two",
			requireCount: true,
			wantErr:      ErrInvalidCount,
		},
		{
			name:         "missing count when required",
			raw:          "crow",
			requireCount: true,
			wantErr:      ErrInvalidCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.raw, tt.requireCount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseEntry(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEntry(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseEntry(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseEntriesFailsWholeBatch(t *testing.T) {
	_, err := ParseEntries([]string{"crow,3", "pigeon,0"}, true)
	if !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
}

func TestApplyOverwrites(t *testing.T) {
	tests := []struct {
		name    string
		current map[string]int
		entries []Entry
		want    map[string]int
	}{
		{
			name:    "new species",
			current: map[string]int{},
			entries: []Entry{{Species: "crow", Count: 2}},
			want:    map[string]int{"crow": 2},
		},
		{
			name:    "existing species overwritten not accumulated",
			current: map[string]int{"crow": 1},
			entries: []Entry{{Species: "crow", Count: 3}},
			want:    map[string]int{"crow": 3},
		},
		{
			name:    "last value wins for duplicate entries",
			current: map[string]int{},
			entries: []Entry{{Species: "crow", Count: 2}, {Species: "crow", Count: 5}},
			want:    map[string]int{"crow": 5},
		},
		{
			name:    "other species untouched",
			current: map[string]int{"pigeon": 4},
			entries: []Entry{{Species: "crow", Count: 1}},
			want:    map[string]int{"pigeon": 4, "crow": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.current, tt.entries)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Apply = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyRejectsInvalidCounts(t *testing.T) {
	current := map[string]int{"crow": 1}
	_, err := Apply(current, []Entry{{Species: "pigeon", Count: 2}, {Species: "crow", Count: 0}})
	if !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	// no partial application
	if current["pigeon"] != 0 {
		t.Fatalf("input map mutated: %v", current)
	}
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name        string
		current     map[string]int
		species     []string
		want        map[string]int
		wantMatched []string
	}{
		{
			name:        "full removal regardless of count",
			current:     map[string]int{"crow": 3, "pigeon": 1},
			species:     []string{"crow"},
			want:        map[string]int{"pigeon": 1},
			wantMatched: []string{"crow"},
		},
		{
			name:    "absent species is a silent no-op",
			current: map[string]int{"pigeon": 1},
			species: []string{"crow"},
			want:    map[string]int{"pigeon": 1},
		},
		{
			name:        "mixed present and absent",
			current:     map[string]int{"crow": 2, "owl": 1},
			species:     []string{"crow", "sparrow"},
			want:        map[string]int{"owl": 1},
			wantMatched: []string{"crow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := Remove(tt.current, tt.species)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Remove = %v, want %v", got, tt.want)
			}
			sort.Strings(matched)
			sort.Strings(tt.wantMatched)
			if !reflect.DeepEqual(matched, tt.wantMatched) {
				t.Fatalf("matched = %v, want %v", matched, tt.wantMatched)
			}
		})
	}
}

func TestRemoveNoMatchReturnsSameMap(t *testing.T) {
	current := map[string]int{"pigeon": 1}
	got, matched := Remove(current, []string{"crow"})
	if matched != nil {
		t.Fatalf("matched = %v, want nil", matched)
	}
	if !reflect.DeepEqual(got, current) {
		t.Fatalf("map changed on no-op: %v", got)
	}
}

func TestDecrement(t *testing.T) {
	tests := []struct {
		name    string
		current map[string]int
		species string
		n       int
		want    map[string]int
	}{
		{
			name:    "partial decrement",
			current: map[string]int{"crow": 3},
			species: "crow",
			n:       1,
			want:    map[string]int{"crow": 2},
		},
		{
			name:    "decrement to zero removes key",
			current: map[string]int{"crow": 2},
			species: "crow",
			n:       2,
			want:    map[string]int{},
		},
		{
			name:    "decrement past zero removes key",
			current: map[string]int{"crow": 2, "owl": 1},
			species: "crow",
			n:       5,
			want:    map[string]int{"owl": 1},
		},
		{
			name:    "absent species unchanged",
			current: map[string]int{"owl": 1},
			species: "crow",
			n:       1,
			want:    map[string]int{"owl": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decrement(tt.current, tt.species, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Decrement = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesThreshold(t *testing.T) {
	tests := []struct {
		name  string
		m     map[string]int
		conds []Condition
		want  bool
	}{
		{
			name:  "count meets minimum",
			m:     map[string]int{"crow": 2},
			conds: []Condition{{Species: "crow", MinCount: 2}},
			want:  true,
		},
		{
			name:  "count below minimum",
			m:     map[string]int{"crow": 1},
			conds: []Condition{{Species: "crow", MinCount: 2}},
			want:  false,
		},
		{
			name:  "absent species fails its condition",
			m:     map[string]int{"pigeon": 5},
			conds: []Condition{{Species: "crow", MinCount: 1}},
			want:  false,
		},
		{
			name: "all conditions must hold",
			m:    map[string]int{"crow": 3, "pigeon": 1},
			conds: []Condition{
				{Species: "crow", MinCount: 2},
				{Species: "pigeon", MinCount: 2},
			},
			want: false,
		},
		{
			name: "conjunction satisfied",
			m:    map[string]int{"crow": 3, "pigeon": 2},
			conds: []Condition{
				{Species: "crow", MinCount: 2},
				{Species: "pigeon", MinCount: 2},
			},
			want: true,
		},
		{
			name:  "minimum below one treated as one",
			m:     map[string]int{"crow": 1},
			conds: []Condition{{Species: "crow", MinCount: 0}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesThreshold(tt.m, tt.conds); got != tt.want {
				t.Fatalf("MatchesThreshold = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		name    string
		m       map[string]int
		species []string
		want    bool
	}{
		{
			name:    "one present",
			m:       map[string]int{"crow": 1},
			species: []string{"owl", "crow"},
			want:    true,
		},
		{
			name:    "none present",
			m:       map[string]int{"pigeon": 2},
			species: []string{"owl", "crow"},
			want:    false,
		},
		{
			name:    "empty map",
			m:       map[string]int{},
			species: []string{"crow"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesAny(tt.m, tt.species); got != tt.want {
				t.Fatalf("MatchesAny = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Crow", "crow"},
		{"American Robin", "american-robin"},
		{"great horned owl", "great-horned-owl"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Fatalf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
