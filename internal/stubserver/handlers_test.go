package stubserver_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/study"
	"github.com/principia-matematica/estudo/internal/stubserver"
)

// startServer brings up a seeded devserver on a throwaway sqlite file and
// returns a logged-in API client against it.
func startServer(t *testing.T) *api.Client {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + t.TempDir() + "/dev.db?_pragma=busy_timeout(5000)"
	db, err := stubserver.OpenDB(ctx, stubserver.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := stubserver.NewSQLStore(db)
	if err := stubserver.Seed(ctx, store); err != nil {
		t.Fatalf("seed: %v", err)
	}

	authSvc := stubserver.NewAuthService("test-secret")
	srv := httptest.NewServer(stubserver.NewRouter(store, authSvc, []string{"*"}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL)
	if _, err := client.Login(ctx, stubserver.DemoEmail, stubserver.DemoPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	return client
}

func TestLoginRejectsBadPassword(t *testing.T) {
	client := startServer(t)
	client.SetToken("")
	_, err := client.Login(context.Background(), stubserver.DemoEmail, "wrong")
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	client := startServer(t)
	client.SetToken("")
	_, err := client.Courses(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
}

func TestPracticeFlowRevealsOutcome(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	lw, err := client.ListQuestions(ctx, "lista-fracoes")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if lw.List.Type != study.ListPractica || len(lw.Questions) != 4 {
		t.Fatalf("list = %+v with %d questions", lw.List, len(lw.Questions))
	}
	// Practice lists keep their answer keys so the client can derive status.
	if lw.Questions[0].CorrectAlternativeID == "" {
		t.Fatal("practice question lost its answer key")
	}

	// No attempt yet.
	if a, err := client.AttemptForList(ctx, "lista-fracoes"); err != nil || a != nil {
		t.Fatalf("attempt before start = %+v, %v", a, err)
	}

	a, err := client.StartAttempt(ctx, "lista-fracoes", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	out, err := client.SubmitAnswer(ctx, a.ID, "q-frac-1", "alt-a")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Revealed || !out.IsCorrect || out.CorrectAlternativeID != "alt-a" {
		t.Fatalf("outcome = %+v", out)
	}

	out, err = client.SubmitAnswer(ctx, a.ID, "q-frac-3", "alt-a")
	if err != nil {
		t.Fatalf("submit wrong: %v", err)
	}
	if out.IsCorrect || out.CorrectAlternativeID != "alt-b" {
		t.Fatalf("outcome = %+v", out)
	}

	// Resume returns the saved answers.
	resumed, err := client.AttemptForList(ctx, "lista-fracoes")
	if err != nil || resumed == nil {
		t.Fatalf("resume: %+v, %v", resumed, err)
	}
	if resumed.SavedAnswers["q-frac-1"] != "alt-a" || resumed.SavedAnswers["q-frac-3"] != "alt-a" {
		t.Fatalf("saved answers = %v", resumed.SavedAnswers)
	}
}

func TestStartAttemptDoesNotForkActiveAttempt(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	a1, err := client.StartAttempt(ctx, "lista-fracoes", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	a2, err := client.StartAttempt(ctx, "lista-fracoes", 0)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if a1.ID != a2.ID {
		t.Fatalf("attempts forked: %s vs %s", a1.ID, a2.ID)
	}
}

func TestExamFlowWithholdsOutcomeUntilFinalize(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	lw, err := client.ListQuestions(ctx, "prova-obmep-2019")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if !lw.List.Type.Exam() {
		t.Fatalf("list type = %s", lw.List.Type)
	}
	for _, q := range lw.Questions {
		if q.CorrectAlternativeID != "" {
			t.Fatalf("exam question %s leaked its answer key", q.ID)
		}
	}

	a, err := client.StartAttempt(ctx, "prova-obmep-2019", 30)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.ChosenDurationMinutes != 30 {
		t.Fatalf("duration = %d", a.ChosenDurationMinutes)
	}

	// One right (alt-b), one wrong.
	out, err := client.SubmitAnswer(ctx, a.ID, "q-obmep-1", "alt-b")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Revealed || out.IsCorrect || out.CorrectAlternativeID != "" {
		t.Fatalf("exam submit leaked outcome: %+v", out)
	}
	if _, err := client.SubmitAnswer(ctx, a.ID, "q-obmep-2", "alt-a"); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	res, err := client.FinalizeAttempt(ctx, a.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.FinalScore != 1 {
		t.Fatalf("final score = %v, want 1", res.FinalScore)
	}
	if res.Breakdown["equações"] != 0.5 {
		t.Fatalf("breakdown = %v", res.Breakdown)
	}

	// Finalize again: same stored result, no error.
	res2, err := client.FinalizeAttempt(ctx, a.ID)
	if err != nil {
		t.Fatalf("re-finalize: %v", err)
	}
	if res2.FinalScore != res.FinalScore {
		t.Fatalf("re-finalize score = %v, want %v", res2.FinalScore, res.FinalScore)
	}

	// Writes after finalization are rejected and not retryable.
	_, err = client.SubmitAnswer(ctx, a.ID, "q-obmep-1", "alt-a")
	var se *api.StatusError
	if !errors.As(err, &se) || se.Status != 409 {
		t.Fatalf("submit after finalize: %v, want 409", err)
	}
	if api.IsRetryable(err) {
		t.Fatal("409 must not be retryable")
	}
}

func TestReanswerIsReevaluated(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	a, err := client.StartAttempt(ctx, "lista-fracoes", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if out, err := client.SubmitAnswer(ctx, a.ID, "q-frac-1", "alt-d"); err != nil || out.IsCorrect {
		t.Fatalf("first answer: %+v, %v", out, err)
	}
	out, err := client.SubmitAnswer(ctx, a.ID, "q-frac-1", "alt-a")
	if err != nil || !out.IsCorrect {
		t.Fatalf("re-answer: %+v, %v", out, err)
	}
}

func TestUnknownQuestionRejected(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)
	a, err := client.StartAttempt(ctx, "lista-fracoes", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = client.SubmitAnswer(ctx, a.ID, "q-alheia", "alt-a")
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCheckInIsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	r1, err := client.CheckIn(ctx)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if r1.AlreadyChecked || r1.StreakDays != 1 {
		t.Fatalf("first check-in = %+v", r1)
	}
	r2, err := client.CheckIn(ctx)
	if err != nil {
		t.Fatalf("second check-in: %v", err)
	}
	if !r2.AlreadyChecked || r2.StreakDays != 1 {
		t.Fatalf("second check-in = %+v", r2)
	}
}

func TestVideoProgressStickyCompletion(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	if err := client.ReportVideoProgress(ctx, "vid-fracoes-1", 400, true); err != nil {
		t.Fatalf("progress: %v", err)
	}
	// A later heartbeat from an earlier position must not un-complete.
	if err := client.ReportVideoProgress(ctx, "vid-fracoes-1", 30, false); err != nil {
		t.Fatalf("progress: %v", err)
	}

	modules, err := client.CourseModules(ctx, "curso-fundamentos")
	if err != nil {
		t.Fatalf("modules: %v", err)
	}
	var v *api.Video
	for i := range modules {
		for j := range modules[i].Videos {
			if modules[i].Videos[j].ID == "vid-fracoes-1" {
				v = &modules[i].Videos[j]
			}
		}
	}
	if v == nil {
		t.Fatal("video not found")
	}
	if !v.Completed || v.PositionSeconds != 30 {
		t.Fatalf("video = %+v, want completed with position 30", v)
	}
}

func TestProfileAggregatesScore(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	a, err := client.StartAttempt(ctx, "lista-fracoes", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, pair := range [][2]string{
		{"q-frac-1", "alt-a"}, {"q-frac-2", "alt-a"}, {"q-frac-3", "alt-b"},
	} {
		if _, err := client.SubmitAnswer(ctx, a.ID, pair[0], pair[1]); err != nil {
			t.Fatalf("submit %s: %v", pair[0], err)
		}
	}
	if _, err := client.FinalizeAttempt(ctx, a.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	p, err := client.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Score != 3 || p.Name != "Aluno Demo" {
		t.Fatalf("profile = %+v", p)
	}
}
