package stubserver

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/study"
)

// DemoEmail and DemoPassword log into the seeded devserver account.
const (
	DemoEmail    = "aluno@principia.app"
	DemoPassword = "estudar"
)

// Seed loads a small course so a fresh devserver has something to serve:
// one course, two modules with videos, a practice list and a timed exam.
func Seed(ctx context.Context, store *SQLStore) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := store.CreateUser(ctx, User{
		ID: "user-demo", Email: DemoEmail, PasswordHash: string(hash), Name: "Aluno Demo",
	}); err != nil {
		return err
	}

	if err := store.PutCourse(ctx, api.Course{
		ID: "curso-fundamentos", Name: "Fundamentos de Matemática",
		Description: "Frações, potências e equações do primeiro grau",
	}); err != nil {
		return err
	}

	modules := []api.Module{
		{ID: "mod-fracoes", CourseID: "curso-fundamentos", Name: "Frações", Position: 1},
		{ID: "mod-equacoes", CourseID: "curso-fundamentos", Name: "Equações", Position: 2},
	}
	for _, m := range modules {
		if err := store.PutModule(ctx, m); err != nil {
			return err
		}
	}

	videos := []api.Video{
		{ID: "vid-fracoes-1", ModuleID: "mod-fracoes", Title: "O que é uma fração", DurationSeconds: 420},
		{ID: "vid-fracoes-2", ModuleID: "mod-fracoes", Title: "Soma de frações", DurationSeconds: 610},
		{ID: "vid-equacoes-1", ModuleID: "mod-equacoes", Title: "Equações do 1º grau", DurationSeconds: 540},
	}
	for i, v := range videos {
		if err := store.PutVideo(ctx, v, i+1); err != nil {
			return err
		}
	}

	practice := study.List{ID: "lista-fracoes", Name: "Lista de Frações", Type: study.ListPractica}
	if err := store.PutList(ctx, "mod-fracoes", practice, practiceQuestions()); err != nil {
		return err
	}

	prova := study.List{ID: "prova-obmep-2019", Name: "OBMEP 2019 — Nível 1", Type: study.ListProva}
	if err := store.PutList(ctx, "mod-equacoes", prova, provaQuestions()); err != nil {
		return err
	}
	return nil
}

func alts(letters ...string) []study.Alternative {
	out := make([]study.Alternative, len(letters))
	for i, text := range letters {
		out[i] = study.Alternative{
			ID:     fmt.Sprintf("alt-%c", 'a'+i),
			Letter: string(rune('A' + i)),
			Text:   text,
		}
	}
	return out
}

func practiceQuestions() []study.Question {
	return []study.Question{
		{
			ID: "q-frac-1", Statement: "Quanto é 1/2 + 1/4?", Difficulty: 1,
			Alternatives:         alts("3/4", "2/6", "1/8", "2/4"),
			CorrectAlternativeID: "alt-a",
			Topics:               []string{"frações"},
			Explanation:          "Reduza ao mesmo denominador: 2/4 + 1/4 = 3/4.",
		},
		{
			ID: "q-frac-2", Statement: "Qual fração é equivalente a 2/3?", Difficulty: 2,
			Alternatives:         alts("4/6", "3/2", "2/6", "6/4"),
			CorrectAlternativeID: "alt-a",
			Topics:               []string{"frações"},
			VideoExplanationID:   "vid-fracoes-2",
		},
		{
			ID: "q-frac-3", Statement: "Quanto é 3/5 de 40?", Difficulty: 2,
			Alternatives:         alts("18", "24", "25", "15"),
			CorrectAlternativeID: "alt-b",
			Topics:               []string{"frações", "proporção"},
		},
		{
			ID: "q-frac-4", Statement: "Ordene: 1/2, 2/5, 3/4. Qual é a maior?", Difficulty: 3,
			Alternatives:         alts("1/2", "2/5", "3/4", "são iguais"),
			CorrectAlternativeID: "alt-c",
			Topics:               []string{"frações"},
		},
	}
}

func provaQuestions() []study.Question {
	return []study.Question{
		{
			ID: "q-obmep-1", Statement: "Se 2x + 3 = 11, quanto vale x?", Difficulty: 2,
			Alternatives:         alts("3", "4", "5", "7"),
			CorrectAlternativeID: "alt-b",
			Topics:               []string{"equações"},
			Source:               study.SourceExam{Board: "OBMEP", Year: 2019, Code: "N1Q7"},
		},
		{
			ID: "q-obmep-2", Statement: "A soma de três números consecutivos é 48. Qual é o menor?", Difficulty: 3,
			Alternatives:         alts("14", "15", "16", "17"),
			CorrectAlternativeID: "alt-b",
			Topics:               []string{"equações"},
			Source:               study.SourceExam{Board: "OBMEP", Year: 2019, Code: "N1Q12"},
			Adapted:              true,
		},
	}
}
