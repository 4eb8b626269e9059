package api

import (
	"context"
	"net/http"
)

type Course struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Module struct {
	ID       string   `json:"id"`
	CourseID string   `json:"course_id"`
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Videos   []Video  `json:"videos,omitempty"`
	ListIDs  []string `json:"list_ids,omitempty"`
}

type Video struct {
	ID              string `json:"id"`
	ModuleID        string `json:"module_id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	MediaURL        string `json:"media_url,omitempty"`
	Completed       bool   `json:"completed"` // authoritative server value
	PositionSeconds int    `json:"position_seconds"`
}

// Courses lists the courses available to the logged-in user.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var out []Course
	err := c.do(ctx, "courses", http.MethodGet, "/courses", nil, &out)
	return out, err
}

// CourseModules lists a course's modules with their videos and question
// lists, including per-video progress for the caller.
func (c *Client) CourseModules(ctx context.Context, courseID string) ([]Module, error) {
	var out []Module
	err := c.do(ctx, "course modules", http.MethodGet, "/courses/"+courseID+"/modules", nil, &out)
	return out, err
}

type videoProgressRequest struct {
	Seconds   int  `json:"seconds"`
	Completed bool `json:"completed"`
}

// ReportVideoProgress is the periodic heartbeat persisting playback
// position. Fire-and-forget from the player's perspective; the server value
// is reconciled on the next load.
func (c *Client) ReportVideoProgress(ctx context.Context, videoID string, seconds int, completed bool) error {
	return c.do(ctx, "video progress", http.MethodPost, "/videos/"+videoID+"/progress",
		videoProgressRequest{Seconds: seconds, Completed: completed}, nil)
}
