package engagement

import (
	"testing"
	"time"
)

func TestUniqueTimes(t *testing.T) {
	got := uniqueTimes([]string{"20:00", " 08:00", "", "20:00", "08:00 "})
	if len(got) != 2 || got[0] != "20:00" || got[1] != "08:00" {
		t.Errorf("unexpected %v", got)
	}
	if got := uniqueTimes(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestNotificationSchedule_Due(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		status string
		at     time.Time
		want   bool
	}{
		{NotificationPending, now.Add(-time.Minute), true},
		{NotificationPending, now, true},
		{NotificationPending, now.Add(time.Minute), false},
		{NotificationSent, now.Add(-time.Minute), false},
		{NotificationCancelled, now.Add(-time.Minute), false},
	}
	for _, tc := range cases {
		n := &NotificationSchedule{Status: tc.status, ScheduledTime: tc.at}
		if got := n.Due(now); got != tc.want {
			t.Errorf("Due(%s, %v) = %v, want %v", tc.status, tc.at, got, tc.want)
		}
	}
}

func TestParseSchedule(t *testing.T) {
	if ts, ok := parseSchedule("2024-05-01T10:00:00+02:00"); !ok || ts.Hour() != 8 || ts.Location() != time.UTC {
		t.Errorf("expected UTC 08:00, got %v", ts)
	}
	if _, ok := parseSchedule("01/05/2024 10:00"); ok {
		t.Error("expected unsupported layout to fail")
	}
}
