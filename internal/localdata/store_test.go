package localdata_test

import (
	"context"
	"testing"
	"time"

	"github.com/principia-matematica/estudo/internal/localdata"
)

func open(t *testing.T) *localdata.Store {
	t.Helper()
	s, err := localdata.Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTimerVisibilityDefaultAndToggle(t *testing.T) {
	s := open(t)
	if !s.TimerVisible() {
		t.Fatal("default timer visibility should be true")
	}
	s.SetTimerVisible(false)
	if s.TimerVisible() {
		t.Fatal("toggle off not persisted")
	}
	s.SetTimerVisible(true)
	if !s.TimerVisible() {
		t.Fatal("toggle on not persisted")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	s := open(t)
	if s.AccessToken() != "" {
		t.Fatal("token present in fresh store")
	}
	s.SetAccessToken("tok-1")
	if s.AccessToken() != "tok-1" {
		t.Fatalf("token = %q", s.AccessToken())
	}
	s.SetAccessToken("tok-2")
	if s.AccessToken() != "tok-2" {
		t.Fatalf("token after overwrite = %q", s.AccessToken())
	}
}

func TestVideoHints(t *testing.T) {
	s := open(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	if s.VideoCompletedHint("v1") {
		t.Fatal("hint present before marking")
	}
	s.MarkVideoCompleted("v1", now)
	if !s.VideoCompletedHint("v1") {
		t.Fatal("hint lost")
	}
	s.DropVideoHint("v1")
	if s.VideoCompletedHint("v1") {
		t.Fatal("hint survived drop")
	}
}

func TestCheckInMarkerIsPerDay(t *testing.T) {
	s := open(t)
	day1 := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 15, 0, 10, 0, 0, time.UTC)

	if s.CheckedInToday(day1) {
		t.Fatal("checked in before any mark")
	}
	s.MarkCheckedIn(day1)
	if !s.CheckedInToday(day1) {
		t.Fatal("same-day marker missing")
	}
	// A few minutes later but across midnight: marker must not carry over.
	if s.CheckedInToday(day2) {
		t.Fatal("marker leaked into the next day")
	}
	s.MarkCheckedIn(day2)
	if !s.CheckedInToday(day2) {
		t.Fatal("next-day marker missing")
	}
}
