package gmcp

import (
	"sort"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestSupports_Has(t *testing.T) {
	tests := map[string]struct {
		entries []string
		module  string
		exp     bool
	}{
		"exact with version":  {entries: []string{"Room 1"}, module: "Room", exp: true},
		"exact without":       {entries: []string{"Room"}, module: "Room", exp: true},
		"child of parent":     {entries: []string{"Char 1"}, module: "Char.Vitals", exp: true},
		"parent of child":     {entries: []string{"Char.Vitals 1"}, module: "Char", exp: false},
		"child module itself": {entries: []string{"Char.Vitals 1"}, module: "Char.Vitals", exp: true},
		"deep child":          {entries: []string{"Room 1"}, module: "Room.Info", exp: true},
		"unrelated":           {entries: []string{"Room 1"}, module: "Comm.Channel", exp: false},
		"empty set":           {module: "Core", exp: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := NewSupports(tt.entries...)
			testutil.AssertEqual(t, "has", s.Has(tt.module), tt.exp)
		})
	}
}

func TestSupports_AddRemoveSet(t *testing.T) {
	s := NewSupports("Core 1", "Room 1")
	testutil.AssertEqual(t, "has room", s.Has("Room"), true)

	s.Remove("Room 1")
	testutil.AssertEqual(t, "has room after remove", s.Has("Room"), false)
	testutil.AssertEqual(t, "has core after remove", s.Has("Core"), true)

	s.Set("Char 1")
	testutil.AssertEqual(t, "has core after set", s.Has("Core"), false)
	testutil.AssertEqual(t, "has char after set", s.Has("Char.Status"), true)

	s.Add(" ", "")
	mods := s.Modules()
	sort.Strings(mods)
	testutil.AssertEqual(t, "modules", len(mods), 1)
	testutil.AssertEqual(t, "module", mods[0], "Char")
}
