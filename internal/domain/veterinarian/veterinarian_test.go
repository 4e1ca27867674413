package veterinarian

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:30")
	if err != nil || got != 9*time.Hour+30*time.Minute {
		t.Fatalf("ParseClock = %v, %v", got, err)
	}
	for _, bad := range []string{"9:30", "24:00", "12:60", "noon", ""} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrInvalidClock) {
			t.Errorf("ParseClock(%q) err = %v", bad, err)
		}
	}
}

func TestAvailabilityValidate(t *testing.T) {
	ok := Availability{Weekday: 1, StartTime: "09:00", EndTime: "13:00", SlotMinutes: 30}

	cases := []struct {
		name string
		edit func(a *Availability)
		want error
	}{
		{"valid", func(*Availability) {}, nil},
		{"sunday", func(a *Availability) { a.Weekday = 0 }, nil},
		{"weekday too high", func(a *Availability) { a.Weekday = 7 }, ErrInvalidWeekday},
		{"bad clock", func(a *Availability) { a.StartTime = "9am" }, ErrInvalidClock},
		{"end equals start", func(a *Availability) { a.EndTime = "09:00" }, ErrWindowEndBeforeStart},
		{"slot too short", func(a *Availability) { a.SlotMinutes = 5 }, ErrInvalidSlotMinutes},
		{"slot too long", func(a *Availability) { a.SlotMinutes = 121 }, ErrInvalidSlotMinutes},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := ok
			tc.edit(&a)
			if err := a.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAvailabilityWindow(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	day := time.Date(2030, 3, 14, 0, 0, 0, 0, loc)
	a := Availability{StartTime: "15:00", EndTime: "18:30"}

	start, end, err := a.Window(day)
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(time.Date(2030, 3, 14, 15, 0, 0, 0, loc)) || !end.Equal(time.Date(2030, 3, 14, 18, 30, 0, 0, loc)) {
		t.Fatalf("window = %s - %s", start, end)
	}
}
