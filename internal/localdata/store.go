// Package localdata is the client's small on-disk cache: UI preference
// flags, fast video-completion hints and the same-day check-in marker.
// Everything here is a hint layered under authoritative server state; reads
// fall back to defaults on any error and writes are best-effort.
package localdata

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite
)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS prefs (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS video_hints (
  video_id TEXT PRIMARY KEY,
  completed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS checkins (
  day TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL
);
`

// Open creates (or opens) the cache database under dir.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + filepath.Join(dir, "cache.db") + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

const prefTimerVisible = "timer_visible"

// TimerVisible reports the persisted timer-visibility toggle. Defaults to
// true: a timed attempt shows its clock until the user hides it.
func (s *Store) TimerVisible() bool {
	var v string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key=$1`, prefTimerVisible).Scan(&v)
	if err != nil {
		return true
	}
	return v != "0"
}

func (s *Store) SetTimerVisible(visible bool) {
	v := "1"
	if !visible {
		v = "0"
	}
	s.db.Exec(`INSERT INTO prefs (key,value) VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`, prefTimerVisible, v)
}

// Token persistence lets the CLI stay logged in between invocations.
const prefToken = "access_token"

func (s *Store) AccessToken() string {
	var v string
	if err := s.db.QueryRow(`SELECT value FROM prefs WHERE key=$1`, prefToken).Scan(&v); err != nil {
		return ""
	}
	return v
}

func (s *Store) SetAccessToken(token string) {
	s.db.Exec(`INSERT INTO prefs (key,value) VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`, prefToken, token)
}

// VideoCompletedHint is the fast local tier of the two-tier completion
// cache. The server value wins on reconcile; this only makes the checkmark
// appear without waiting for a round trip.
func (s *Store) VideoCompletedHint(videoID string) bool {
	var at int64
	err := s.db.QueryRow(`SELECT completed_at FROM video_hints WHERE video_id=$1`, videoID).Scan(&at)
	return err == nil
}

func (s *Store) MarkVideoCompleted(videoID string, now time.Time) {
	s.db.Exec(`INSERT INTO video_hints (video_id,completed_at) VALUES ($1,$2)
		ON CONFLICT (video_id) DO NOTHING`, videoID, now.Unix())
}

// DropVideoHint removes a stale hint the server contradicted.
func (s *Store) DropVideoHint(videoID string) {
	s.db.Exec(`DELETE FROM video_hints WHERE video_id=$1`, videoID)
}

// dayKey collapses a timestamp to the local calendar day, which is the
// granularity of the check-in marker.
func dayKey(t time.Time) string { return t.Format("2006-01-02") }

// CheckedInToday reports whether a check-in was already recorded for now's
// calendar day.
func (s *Store) CheckedInToday(now time.Time) bool {
	var at int64
	err := s.db.QueryRow(`SELECT created_at FROM checkins WHERE day=$1`, dayKey(now)).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	return err == nil
}

// MarkCheckedIn records the same-day marker. Old rows are pruned so the
// table stays tiny.
func (s *Store) MarkCheckedIn(now time.Time) {
	s.db.Exec(`INSERT INTO checkins (day,created_at) VALUES ($1,$2)
		ON CONFLICT (day) DO NOTHING`, dayKey(now), now.Unix())
	s.db.Exec(`DELETE FROM checkins WHERE day <> $1`, dayKey(now))
}
