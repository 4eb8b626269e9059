package api

import (
	"context"
	"net/http"
)

// Profile is the gamification widget payload: the user's score, level and
// check-in streak as the backend computes them.
type Profile struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Level      int     `json:"level"`
	StreakDays int     `json:"streak_days"`
}

// CheckInResult reports the streak after a daily check-in. AlreadyChecked
// means today's check-in had been recorded before this call.
type CheckInResult struct {
	StreakDays     int  `json:"streak_days"`
	AlreadyChecked bool `json:"already_checked"`
}

// Profile fetches the caller's gamification profile.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var out Profile
	err := c.do(ctx, "profile", http.MethodGet, "/me/profile", nil, &out)
	return out, err
}

// CheckIn records today's study check-in. Idempotent per day server-side;
// the client additionally keeps a same-day marker locally so the widget can
// render without a round trip.
func (c *Client) CheckIn(ctx context.Context) (CheckInResult, error) {
	var out CheckInResult
	err := c.do(ctx, "check-in", http.MethodPost, "/me/checkin", nil, &out)
	return out, err
}
