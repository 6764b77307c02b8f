package game

import (
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func containsLine(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func TestValidateWorld(t *testing.T) {
	tests := map[string]struct {
		setup       func(t *testing.T, w *World)
		expErrors   []string
		expWarnings []string
	}{
		"clean": {
			setup: func(t *testing.T, w *World) {
				a := NewRoom(1, "A", SectorInside)
				b := NewRoom(2, "B", SectorInside)
				link(a, DirNorth, b)
				link(b, DirSouth, a)
				buildZone(t, w, 1, []*Room{a, b})
			},
		},
		"exit to missing room": {
			setup: func(t *testing.T, w *World) {
				a := NewRoom(1, "A", SectorInside)
				a.SetExit(DirUp, &Exit{ToRoom: 50})
				buildZone(t, w, 1, []*Room{a})
			},
			expErrors: []string{"leads to missing room 50"},
		},
		"zone references missing room": {
			setup: func(t *testing.T, w *World) {
				z := buildZone(t, w, 1, []*Room{NewRoom(1, "A", SectorInside)})
				z.AddRoom(77)
			},
			expErrors: []string{"zone 1 references missing room 77"},
		},
		"self exit and orphan": {
			setup: func(t *testing.T, w *World) {
				a := NewRoom(1, "A", SectorInside)
				link(a, DirIn, a)
				buildZone(t, w, 1, []*Room{a})
				if err := w.AddRoom(NewRoom(2, "Loose", SectorInside)); err != nil {
					t.Fatalf("adding room: %v", err)
				}
			},
			expWarnings: []string{"leads back to itself", "room 2 belongs to no zone", "room 2 is unreachable"},
		},
		"claimed twice": {
			setup: func(t *testing.T, w *World) {
				buildZone(t, w, 1, []*Room{NewRoom(1, "A", SectorInside)})
				z := NewZone(2, "Other", ResetNever, 0)
				if err := w.AddZone(z); err != nil {
					t.Fatalf("adding zone: %v", err)
				}
				z.AddRoom(1)
			},
			expWarnings: []string{"room 1 is claimed by zones"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := NewWorld()
			tt.setup(t, w)
			report := w.ValidateWorld()

			testutil.AssertEqual(t, "ok", report.OK(), len(tt.expErrors) == 0)
			testutil.AssertEqual(t, "error count", len(report.Errors), len(tt.expErrors))
			for _, exp := range tt.expErrors {
				if !containsLine(report.Errors, exp) {
					t.Errorf("missing error %q in %v", exp, report.Errors)
				}
			}
			testutil.AssertEqual(t, "warning count", len(report.Warnings), len(tt.expWarnings))
			for _, exp := range tt.expWarnings {
				if !containsLine(report.Warnings, exp) {
					t.Errorf("missing warning %q in %v", exp, report.Warnings)
				}
			}
			testutil.AssertEqual(t, "err", report.Err() != nil, len(tt.expErrors) > 0)
		})
	}
}
