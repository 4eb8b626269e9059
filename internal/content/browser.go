// Package content holds the course/module/video browsing state for one
// screen. The container is passed explicitly to whoever renders it; there is
// no ambient global. Its lifecycle is load (guarded by the loaded-key check),
// use, then Reset when the user moves to another course.
package content

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/logging"
)

// Backend is the slice of the API client this package consumes.
type Backend interface {
	Courses(ctx context.Context) ([]api.Course, error)
	CourseModules(ctx context.Context, courseID string) ([]api.Module, error)
	Profile(ctx context.Context) (api.Profile, error)
	ReportVideoProgress(ctx context.Context, videoID string, seconds int, completed bool) error
}

// Hints is the fast local tier of the video-completion cache;
// localdata.Store satisfies it.
type Hints interface {
	VideoCompletedHint(videoID string) bool
	MarkVideoCompleted(videoID string, now time.Time)
	DropVideoHint(videoID string)
}

// Browser caches one course's modules plus the viewer profile. Completion
// flags are merged from two tiers: the authoritative server value and the
// local hint written at the moment the player reported completion. The
// merge is eventually consistent; the server wins whenever it disagrees.
type Browser struct {
	backend Backend
	hints   Hints
	log     *logging.Logger
	clock   func() time.Time

	mu             sync.Mutex
	loadedCourseID string
	modules        []api.Module
	profile        api.Profile
}

type Option func(*Browser)

func WithLogger(log *logging.Logger) Option {
	return func(b *Browser) { b.log = log }
}

func WithClock(c func() time.Time) Option {
	return func(b *Browser) { b.clock = c }
}

func New(backend Backend, hints Hints, opts ...Option) *Browser {
	b := &Browser{
		backend: backend,
		hints:   hints,
		log:     logging.Nop(),
		clock:   time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// LoadCourse fetches a course's modules and the viewer profile. Re-loading
// the course that is already loaded is a no-op, so mount-time calls can be
// issued freely without duplicate fetches.
func (b *Browser) LoadCourse(ctx context.Context, courseID string) error {
	b.mu.Lock()
	if b.loadedCourseID == courseID {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	var (
		modules []api.Module
		profile api.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		modules, err = b.backend.CourseModules(gctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = b.backend.Profile(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	b.mu.Lock()
	b.loadedCourseID = courseID
	b.modules = b.reconcile(modules)
	b.profile = profile
	b.mu.Unlock()
	b.log.Info("course loaded", "course_id", courseID, "modules", len(modules))
	return nil
}

// reconcile merges local completion hints into the server payload and drops
// hints the server has since confirmed or contradicted.
func (b *Browser) reconcile(modules []api.Module) []api.Module {
	if b.hints == nil {
		return modules
	}
	for mi := range modules {
		for vi := range modules[mi].Videos {
			v := &modules[mi].Videos[vi]
			switch {
			case v.Completed:
				// Server already knows; the hint has served its purpose.
				b.hints.DropVideoHint(v.ID)
			case b.hints.VideoCompletedHint(v.ID):
				v.Completed = true
			}
		}
	}
	return modules
}

// Reset clears the container when navigating to a different course, so the
// next LoadCourse fetches fresh state.
func (b *Browser) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadedCourseID = ""
	b.modules = nil
	b.profile = api.Profile{}
}

// LoadedCourseID returns the key currently loaded, "" when empty.
func (b *Browser) LoadedCourseID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadedCourseID
}

// Modules returns the loaded modules, hints already merged.
func (b *Browser) Modules() []api.Module {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modules
}

// Profile returns the loaded viewer profile.
func (b *Browser) Profile() api.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profile
}

// MarkVideoCompleted writes the fast tier immediately and reports to the
// server in the caller's context. A server failure keeps the hint: the
// checkmark stays, and the next reconcile settles it.
func (b *Browser) MarkVideoCompleted(ctx context.Context, videoID string, atSecond int) error {
	if b.hints != nil {
		b.hints.MarkVideoCompleted(videoID, b.clock())
	}
	b.mu.Lock()
	for mi := range b.modules {
		for vi := range b.modules[mi].Videos {
			if b.modules[mi].Videos[vi].ID == videoID {
				b.modules[mi].Videos[vi].Completed = true
			}
		}
	}
	b.mu.Unlock()
	if err := b.backend.ReportVideoProgress(ctx, videoID, atSecond, true); err != nil {
		b.log.Warn("completion report failed, hint kept", "video_id", videoID, "err", err)
		return err
	}
	return nil
}

// PositionFunc samples the player's current position for the heartbeat.
type PositionFunc func() (seconds int, completed bool)

// RunHeartbeat reports playback progress every interval until ctx is
// canceled. Late failures after cancellation are ignored: the server value
// is reconciled on the next load anyway.
func (b *Browser) RunHeartbeat(ctx context.Context, videoID string, pos PositionFunc, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seconds, completed := pos()
			if err := b.backend.ReportVideoProgress(ctx, videoID, seconds, completed); err != nil {
				b.log.Warn("heartbeat failed", "video_id", videoID, "err", err)
			}
			if completed {
				if b.hints != nil {
					b.hints.MarkVideoCompleted(videoID, b.clock())
				}
				return
			}
		}
	}
}
