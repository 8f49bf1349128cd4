package schedule

import (
	"reflect"
	"testing"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"07:00", 420, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"07:60", 0, true},
		{"07:00:30", 0, true},
		{"7:5x", 0, true},
		{"seven", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseClock(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestPlanFullDay(t *testing.T) {
	// Site with a 5 minute floor, 07:00-09:00 window and 25 loads:
	// floor(120/24) = 5, so the floor does not bite and the slots run
	// 07:00, 07:05, ..., 09:00 with none past close.
	interval, times, err := Plan("07:00", "09:00", 25, 5, 0)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if interval != 5 {
		t.Errorf("interval = %d, want 5", interval)
	}
	if len(times) != 25 {
		t.Fatalf("len(times) = %d, want 25", len(times))
	}
	if times[0] != "07:00" {
		t.Errorf("first slot = %s, want 07:00", times[0])
	}
	if times[24] != "09:00" {
		t.Errorf("last slot = %s, want 09:00", times[24])
	}
}

func TestPlanSiteFloorWins(t *testing.T) {
	// Window of 60 minutes with 61 loads would compute a 1 minute
	// interval; a 10 minute site floor caps the day at 7 slots.
	interval, times, err := Plan("08:00", "09:00", 61, 10, 0)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if interval != 10 {
		t.Errorf("interval = %d, want 10", interval)
	}
	want := []string{"08:00", "08:10", "08:20", "08:30", "08:40", "08:50", "09:00"}
	if !reflect.DeepEqual(times, want) {
		t.Errorf("times = %v, want %v", times, want)
	}
}

func TestPlanRequestedInterval(t *testing.T) {
	interval, times, err := Plan("07:00", "08:00", 3, 5, 20)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if interval != 20 {
		t.Errorf("interval = %d, want 20", interval)
	}
	want := []string{"07:00", "07:20", "07:40"}
	if !reflect.DeepEqual(times, want) {
		t.Errorf("times = %v, want %v", times, want)
	}
}

func TestPlanSingleLoad(t *testing.T) {
	_, times, err := Plan("07:00", "17:00", 1, 5, 0)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(times) != 1 || times[0] != "07:00" {
		t.Errorf("times = %v, want [07:00]", times)
	}
}

func TestPlanDeterministic(t *testing.T) {
	i1, t1, err1 := Plan("06:30", "15:45", 40, 7, 0)
	i2, t2, err2 := Plan("06:30", "15:45", 40, 7, 0)
	if err1 != nil || err2 != nil {
		t.Fatalf("Plan returned errors: %v, %v", err1, err2)
	}
	if i1 != i2 || !reflect.DeepEqual(t1, t2) {
		t.Errorf("Plan is not deterministic: (%d,%v) vs (%d,%v)", i1, t1, i2, t2)
	}
}

func TestPlanBounds(t *testing.T) {
	// Whatever the inputs, the count never exceeds the target and no
	// time escapes the window.
	cases := []struct {
		open, close   string
		target, floor int
	}{
		{"07:00", "09:00", 25, 5},
		{"00:00", "23:59", 100, 3},
		{"09:15", "09:45", 12, 10},
		{"06:00", "06:01", 5, 0},
	}
	for _, c := range cases {
		_, times, err := Plan(c.open, c.close, c.target, c.floor, 0)
		if err != nil {
			t.Errorf("Plan(%s,%s,%d,%d) error: %v", c.open, c.close, c.target, c.floor, err)
			continue
		}
		if len(times) > c.target {
			t.Errorf("Plan(%s,%s,%d,%d) produced %d slots, above target", c.open, c.close, c.target, c.floor, len(times))
		}
		openMin, _ := ParseClock(c.open)
		closeMin, _ := ParseClock(c.close)
		for _, ts := range times {
			m, err := ParseClock(ts)
			if err != nil {
				t.Errorf("generated time %q does not parse: %v", ts, err)
				continue
			}
			if m < openMin || m > closeMin {
				t.Errorf("generated time %s outside [%s,%s]", ts, c.open, c.close)
			}
		}
	}
}

func TestPlanValidation(t *testing.T) {
	if _, _, err := Plan("09:00", "07:00", 10, 5, 0); err == nil {
		t.Error("expected error when close precedes open")
	}
	if _, _, err := Plan("07:00", "07:00", 10, 5, 0); err == nil {
		t.Error("expected error when close equals open")
	}
	if _, _, err := Plan("07:00", "09:00", 0, 5, 0); err == nil {
		t.Error("expected error for zero loads target")
	}
	if _, _, err := Plan("7am", "09:00", 10, 5, 0); err == nil {
		t.Error("expected error for malformed open time")
	}
}

func TestSpan(t *testing.T) {
	times, err := Span("11:00", "12:00", 15)
	if err != nil {
		t.Fatalf("Span returned error: %v", err)
	}
	want := []string{"11:00", "11:15", "11:30", "11:45", "12:00"}
	if !reflect.DeepEqual(times, want) {
		t.Errorf("times = %v, want %v", times, want)
	}
	// A single instant is a valid one element run.
	times, err = Span("11:00", "11:00", 30)
	if err != nil {
		t.Fatalf("Span returned error: %v", err)
	}
	if len(times) != 1 || times[0] != "11:00" {
		t.Errorf("times = %v, want [11:00]", times)
	}
	if _, err := Span("12:00", "11:00", 15); err == nil {
		t.Error("expected error when end precedes start")
	}
	if _, err := Span("11:00", "12:00", 0); err == nil {
		t.Error("expected error for zero step")
	}
}

func TestDisabledPositions(t *testing.T) {
	// 10 slots, 2 disabled: stride round(10/2)=5 marks indexes 4 and 9.
	got := DisabledPositions(10, 2)
	if len(got) != 2 || !got[4] || !got[9] {
		t.Errorf("DisabledPositions(10,2) = %v, want {4,9}", got)
	}
	// 10 slots, 3 disabled: stride round(10/3)=3 marks 2,5,8.
	got = DisabledPositions(10, 3)
	if len(got) != 3 || !got[2] || !got[5] || !got[8] {
		t.Errorf("DisabledPositions(10,3) = %v, want {2,5,8}", got)
	}
	// Rounding up can leave the stride walk short; the remainder is
	// back-filled from the end.  7 slots, 4 disabled: stride round(7/4)=2
	// marks 1,3,5 and the back-fill adds 6.
	got = DisabledPositions(7, 4)
	if len(got) != 4 || !got[1] || !got[3] || !got[5] || !got[6] {
		t.Errorf("DisabledPositions(7,4) = %v, want {1,3,5,6}", got)
	}
	// Asking for more marks than slots just marks everything.
	got = DisabledPositions(3, 9)
	if len(got) != 3 {
		t.Errorf("DisabledPositions(3,9) marked %d, want 3", len(got))
	}
	if len(DisabledPositions(10, 0)) != 0 {
		t.Error("DisabledPositions(10,0) should mark nothing")
	}
}
