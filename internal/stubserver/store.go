package stubserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/study"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrFinalized = errors.New("attempt already finalized")
)

// User is a devserver account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
}

// attemptRow is the stored attempt plus its owner; the wire shape is
// study.Attempt.
type attemptRow struct {
	study.Attempt
	UserID     string
	FinalScore sql.NullFloat64
	Breakdown  string
}

// SQLStore persists the devserver's world. Questions are stored as a JSON
// column per list, answers as a JSON column per attempt.
type SQLStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, clock: time.Now}
}

// WithClock pins time in tests.
func (s *SQLStore) WithClock(clock func() time.Time) *SQLStore {
	s.clock = clock
	return s
}

/* ---------------- users ---------------- */

func (s *SQLStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id,email,password_hash,name,created_at) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Email, u.PasswordHash, u.Name, s.clock().Unix())
	return err
}

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id,email,password_hash,name FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

/* ---------------- content ---------------- */

func (s *SQLStore) PutCourse(ctx context.Context, c api.Course) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id,name,description) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description`,
		c.ID, c.Name, c.Description)
	return err
}

func (s *SQLStore) PutModule(ctx context.Context, m api.Module) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO modules (id,course_id,name,position) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, position=EXCLUDED.position`,
		m.ID, m.CourseID, m.Name, m.Position)
	return err
}

func (s *SQLStore) PutVideo(ctx context.Context, v api.Video, position int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id,module_id,title,duration_seconds,media_url,position)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, media_url=EXCLUDED.media_url`,
		v.ID, v.ModuleID, v.Title, v.DurationSeconds, v.MediaURL, position)
	return err
}

func (s *SQLStore) PutList(ctx context.Context, moduleID string, l study.List, questions []study.Question) error {
	qj, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	var mid interface{}
	if moduleID != "" {
		mid = moduleID
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lists (id,module_id,name,type,questions_json) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, type=EXCLUDED.type, questions_json=EXCLUDED.questions_json`,
		l.ID, mid, l.Name, string(l.Type), string(qj))
	return err
}

func (s *SQLStore) Courses(ctx context.Context) ([]api.Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,description FROM courses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []api.Course
	for rows.Next() {
		var c api.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CourseModules returns a course's modules with videos (joined with the
// viewer's progress) and the ids of the question lists attached to each
// module.
func (s *SQLStore) CourseModules(ctx context.Context, courseID, userID string) ([]api.Module, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,course_id,name,position FROM modules WHERE course_id=$1 ORDER BY position`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var modules []api.Module
	for rows.Next() {
		var m api.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Name, &m.Position); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range modules {
		videos, err := s.moduleVideos(ctx, modules[i].ID, userID)
		if err != nil {
			return nil, err
		}
		modules[i].Videos = videos

		lids, err := s.moduleListIDs(ctx, modules[i].ID)
		if err != nil {
			return nil, err
		}
		modules[i].ListIDs = lids
	}
	return modules, nil
}

func (s *SQLStore) moduleVideos(ctx context.Context, moduleID, userID string) ([]api.Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.module_id, v.title, v.duration_seconds, v.media_url,
		        COALESCE(p.seconds, 0), COALESCE(p.completed, 0)
		 FROM videos v
		 LEFT JOIN video_progress p ON p.video_id = v.id AND p.user_id = $1
		 WHERE v.module_id = $2
		 ORDER BY v.position`, userID, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []api.Video
	for rows.Next() {
		var v api.Video
		var completed int
		if err := rows.Scan(&v.ID, &v.ModuleID, &v.Title, &v.DurationSeconds, &v.MediaURL,
			&v.PositionSeconds, &completed); err != nil {
			return nil, err
		}
		v.Completed = completed != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) moduleListIDs(ctx context.Context, moduleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM lists WHERE module_id=$1 ORDER BY id`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

/* ---------------- lists & questions ---------------- */

// ListWithQuestions loads a list for serving to a learner. On exam-type
// lists the correct-alternative ids are stripped so the client cannot show
// feedback before finalization; grading always reloads the keyed copy.
func (s *SQLStore) ListWithQuestions(ctx context.Context, listID string) (study.List, []study.Question, error) {
	l, questions, err := s.listWithKeys(ctx, listID)
	if err != nil {
		return study.List{}, nil, err
	}
	if l.Type.Exam() {
		for i := range questions {
			questions[i].CorrectAlternativeID = ""
		}
	}
	return l, questions, nil
}

func (s *SQLStore) listWithKeys(ctx context.Context, listID string) (study.List, []study.Question, error) {
	var l study.List
	var typ, qjson string
	err := s.db.QueryRowContext(ctx,
		`SELECT id,name,type,questions_json FROM lists WHERE id=$1`, listID).
		Scan(&l.ID, &l.Name, &typ, &qjson)
	if errors.Is(err, sql.ErrNoRows) {
		return study.List{}, nil, ErrNotFound
	}
	if err != nil {
		return study.List{}, nil, err
	}
	l.Type = study.ListType(typ)
	var questions []study.Question
	if err := json.Unmarshal([]byte(qjson), &questions); err != nil {
		return study.List{}, nil, fmt.Errorf("list %s: %w", listID, err)
	}
	return l, questions, nil
}

/* ---------------- attempts ---------------- */

func (s *SQLStore) scanAttempt(row *sql.Row) (attemptRow, error) {
	var a attemptRow
	var status, answersJSON string
	var startedAt int64
	var breakdown sql.NullString
	err := row.Scan(&a.ID, &a.ListID, &a.UserID, &status, &startedAt,
		&a.ChosenDurationMinutes, &answersJSON, &a.FinalScore, &breakdown)
	if errors.Is(err, sql.ErrNoRows) {
		return attemptRow{}, ErrNotFound
	}
	if err != nil {
		return attemptRow{}, err
	}
	a.Status = study.AttemptStatus(status)
	a.StartedAt = time.Unix(startedAt, 0).UTC()
	a.Breakdown = breakdown.String
	if err := json.Unmarshal([]byte(answersJSON), &a.SavedAnswers); err != nil {
		return attemptRow{}, err
	}
	if a.SavedAnswers == nil {
		a.SavedAnswers = map[string]string{}
	}
	return a, nil
}

const attemptCols = `id,list_id,user_id,status,started_at,duration_minutes,answers_json,final_score,breakdown_json`

// ActiveAttempt returns the user's attempt for a list (any status; a
// finalized attempt is returned so the client can render it read-only), or
// ErrNotFound.
func (s *SQLStore) ActiveAttempt(ctx context.Context, listID, userID string) (study.Attempt, error) {
	a, err := s.scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE list_id=$1 AND user_id=$2
		 ORDER BY started_at DESC LIMIT 1`, listID, userID))
	if err != nil {
		return study.Attempt{}, err
	}
	return a.Attempt, nil
}

// NewAttempt creates an attempt, or returns the existing active one: the
// client's single-flight makes duplicates unlikely, but a reconnect must
// not fork a second attempt either.
func (s *SQLStore) NewAttempt(ctx context.Context, listID, userID string, durationMinutes int) (study.Attempt, error) {
	if existing, err := s.ActiveAttempt(ctx, listID, userID); err == nil &&
		existing.Status == study.AttemptActive {
		return existing, nil
	}
	if _, _, err := s.listWithKeys(ctx, listID); err != nil {
		return study.Attempt{}, err
	}
	a := study.Attempt{
		ID:                    uuid.NewString(),
		ListID:                listID,
		StartedAt:             s.clock().UTC().Truncate(time.Second),
		ChosenDurationMinutes: durationMinutes,
		Status:                study.AttemptActive,
		SavedAnswers:          map[string]string{},
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id,list_id,user_id,status,started_at,duration_minutes,answers_json)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, listID, userID, string(a.Status), a.StartedAt.Unix(), durationMinutes, "{}")
	if err != nil {
		return study.Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) attemptForUser(ctx context.Context, attemptID, userID string) (attemptRow, error) {
	a, err := s.scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE id=$1`, attemptID))
	if err != nil {
		return attemptRow{}, err
	}
	if a.UserID != userID {
		// Another user's attempt is indistinguishable from a missing one.
		return attemptRow{}, ErrNotFound
	}
	return a, nil
}

// SaveAnswer records one answer and reports the outcome. Re-answering an
// already-answered question is allowed and re-evaluated; the attempt stays
// authoritative for what was last chosen. Finalized attempts reject writes.
func (s *SQLStore) SaveAnswer(ctx context.Context, attemptID, userID, questionID, alternativeID string) (study.AnswerOutcome, error) {
	a, err := s.attemptForUser(ctx, attemptID, userID)
	if err != nil {
		return study.AnswerOutcome{}, err
	}
	if a.Status == study.AttemptFinalized {
		return study.AnswerOutcome{}, ErrFinalized
	}

	l, questions, err := s.listWithKeys(ctx, a.ListID)
	if err != nil {
		return study.AnswerOutcome{}, err
	}
	var q *study.Question
	for i := range questions {
		if questions[i].ID == questionID {
			q = &questions[i]
			break
		}
	}
	if q == nil {
		return study.AnswerOutcome{}, ErrNotFound
	}

	a.SavedAnswers[questionID] = alternativeID
	buf, _ := json.Marshal(a.SavedAnswers)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE attempts SET answers_json=$1 WHERE id=$2`, string(buf), attemptID); err != nil {
		return study.AnswerOutcome{}, err
	}

	if l.Type.Exam() {
		return study.AnswerOutcome{Accepted: true}, nil
	}
	return study.AnswerOutcome{
		Accepted:             true,
		Revealed:             true,
		IsCorrect:            alternativeID == q.CorrectAlternativeID,
		CorrectAlternativeID: q.CorrectAlternativeID,
	}, nil
}

// Finalize grades the attempt and closes it. Finalizing a finalized attempt
// returns the stored result unchanged.
func (s *SQLStore) Finalize(ctx context.Context, attemptID, userID string) (study.FinalResult, error) {
	a, err := s.attemptForUser(ctx, attemptID, userID)
	if err != nil {
		return study.FinalResult{}, err
	}
	if a.Status == study.AttemptFinalized {
		res := study.FinalResult{FinalScore: a.FinalScore.Float64}
		if a.Breakdown != "" {
			_ = json.Unmarshal([]byte(a.Breakdown), &res.Breakdown)
		}
		return res, nil
	}

	_, questions, err := s.listWithKeys(ctx, a.ListID)
	if err != nil {
		return study.FinalResult{}, err
	}

	res := grade(questions, a.SavedAnswers)
	bj, _ := json.Marshal(res.Breakdown)
	_, err = s.db.ExecContext(ctx,
		`UPDATE attempts SET status=$1, final_score=$2, breakdown_json=$3, finalized_at=$4 WHERE id=$5`,
		string(study.AttemptFinalized), res.FinalScore, string(bj), s.clock().Unix(), attemptID)
	if err != nil {
		return study.FinalResult{}, err
	}
	return res, nil
}

// grade is a development stand-in for the production scoring service: one
// point per correct answer, plus a per-topic fraction-correct breakdown.
func grade(questions []study.Question, answers map[string]string) study.FinalResult {
	type tally struct{ correct, total float64 }
	topics := map[string]*tally{}
	score := 0.0
	for _, q := range questions {
		correct := false
		if alt, ok := answers[q.ID]; ok && q.CorrectAlternativeID != "" && alt == q.CorrectAlternativeID {
			correct = true
			score++
		}
		for _, topic := range q.Topics {
			t, ok := topics[topic]
			if !ok {
				t = &tally{}
				topics[topic] = t
			}
			t.total++
			if correct {
				t.correct++
			}
		}
	}
	breakdown := make(map[string]float64, len(topics))
	for topic, t := range topics {
		breakdown[topic] = t.correct / t.total
	}
	return study.FinalResult{FinalScore: score, Breakdown: breakdown}
}

/* ---------------- gamification & progress ---------------- */

// Profile aggregates the user's gamification widgets: score is the sum of
// finalized attempt scores, level a simple step function over it, streak the
// run of consecutive check-in days ending today or yesterday.
func (s *SQLStore) Profile(ctx context.Context, userID string, now time.Time) (api.Profile, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `SELECT id,email,password_hash,name FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Profile{}, ErrNotFound
	}
	if err != nil {
		return api.Profile{}, err
	}

	var score sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT SUM(final_score) FROM attempts WHERE user_id=$1 AND status=$2`,
		userID, string(study.AttemptFinalized)).Scan(&score); err != nil {
		return api.Profile{}, err
	}

	streak, err := s.streak(ctx, userID, now)
	if err != nil {
		return api.Profile{}, err
	}
	return api.Profile{
		Name:       u.Name,
		Score:      score.Float64,
		Level:      1 + int(score.Float64)/10,
		StreakDays: streak,
	}, nil
}

// CheckIn records today's check-in; repeated calls on the same day are
// acknowledged without a second row.
func (s *SQLStore) CheckIn(ctx context.Context, userID string, now time.Time) (api.CheckInResult, error) {
	day := now.Format("2006-01-02")
	var existing int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM checkins WHERE user_id=$1 AND day=$2`, userID, day).Scan(&existing)
	already := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return api.CheckInResult{}, err
	}
	if !already {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO checkins (user_id,day,created_at) VALUES ($1,$2,$3)`,
			userID, day, now.Unix()); err != nil {
			return api.CheckInResult{}, err
		}
	}
	streak, err := s.streak(ctx, userID, now)
	if err != nil {
		return api.CheckInResult{}, err
	}
	return api.CheckInResult{StreakDays: streak, AlreadyChecked: already}, nil
}

func (s *SQLStore) streak(ctx context.Context, userID string, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day FROM checkins WHERE user_id=$1 ORDER BY day DESC`, userID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	days := map[string]bool{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return 0, err
		}
		days[d] = true
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	cursor := now
	if !days[cursor.Format("2006-01-02")] {
		// A streak broken today may still be alive through yesterday.
		cursor = cursor.AddDate(0, 0, -1)
	}
	streak := 0
	for days[cursor.Format("2006-01-02")] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak, nil
}

func (s *SQLStore) UpsertVideoProgress(ctx context.Context, userID, videoID string, seconds int, completed bool) error {
	done := 0
	if completed {
		done = 1
	}
	// Completion is sticky: a later heartbeat at an earlier position does
	// not un-complete the video.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO video_progress (user_id,video_id,seconds,completed,updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id,video_id) DO UPDATE SET
		   seconds=EXCLUDED.seconds,
		   completed=CASE WHEN video_progress.completed=1 THEN 1 ELSE EXCLUDED.completed END,
		   updated_at=EXCLUDED.updated_at`,
		userID, videoID, seconds, done, s.clock().Unix())
	return err
}
