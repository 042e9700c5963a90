package availability

import (
	"testing"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
)

func TestAvailableSlots_Basic(t *testing.T) {
	window := hours.Window{Start: 540, End: 600}
	busy := []Interval{{Start: 555, End: 585}}

	slots := AvailableSlots(window, 15, 15, busy, 0)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0] != 540 {
		t.Fatalf("expected first slot 09:00, got %d", slots[0])
	}
	if slots[1] != 585 {
		t.Fatalf("expected second slot 09:45, got %d", slots[1])
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	window := hours.Window{Start: 540, End: 600}

	slots := AvailableSlots(window, 15, 15, nil, 571)
	// 09:00, 09:15, 09:30 start before 09:31. 09:45 is future.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if slots[0] != 585 {
		t.Fatalf("expected slot 09:45, got %d", slots[0])
	}
}

func TestAvailableSlots_DurationLongerThanWindow(t *testing.T) {
	if slots := AvailableSlots(hours.Window{Start: 540, End: 570}, 45, 15, nil, 0); slots != nil {
		t.Fatalf("expected no slots, got %v", slots)
	}
}

func TestNextAvailable(t *testing.T) {
	work := hours.Window{Start: 540, End: 1020}

	cases := []struct {
		name string
		asOf int
		busy []Interval
		want int
		ok   bool
	}{
		{name: "back to back", asOf: 610, busy: []Interval{{660, 690}, {600, 630}, {630, 660}}, want: 690, ok: true},
		{name: "gap after current", asOf: 610, busy: []Interval{{600, 630}, {645, 700}}, want: 630, ok: true},
		{name: "before opening", asOf: 480, busy: nil, want: 540, ok: true},
		{name: "opening slot taken", asOf: 480, busy: []Interval{{540, 570}}, want: 570, ok: true},
		{name: "runs past close", asOf: 960, busy: []Interval{{950, 990}, {990, 1030}}, ok: false},
		{name: "ends at close", asOf: 990, busy: []Interval{{980, 1020}}, ok: false},
		{name: "earlier appointments ignored", asOf: 700, busy: []Interval{{540, 600}, {690, 720}}, want: 720, ok: true},
	}
	for _, tc := range cases {
		got, ok := NextAvailable(tc.asOf, work, tc.busy)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("%s: expected (%d, %v), got (%d, %v)", tc.name, tc.want, tc.ok, got, ok)
		}
	}
}
