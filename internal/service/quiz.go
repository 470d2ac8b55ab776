package service

import (
	"time"

	"github.com/PoluyanbIch/MenuQuizBot/internal/catalog"
)

type QuizQuestion struct {
	ID            string
	Text          string
	Options       []string
	CorrectOption string
	Category      string
	Kind          catalog.FactKind
}

func (q QuizQuestion) clone() QuizQuestion {
	q.Options = append([]string(nil), q.Options...)
	return q
}

type State int

const (
	StateIdle State = iota
	StateAwaitingAnswer
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

type QuizSession struct {
	UserID         int64
	IdentityLabel  string
	Questions      []QuizQuestion
	CurrentIndex   int
	CorrectCount   int
	RoundToken     string
	State          State
	StartedAt      time.Time
	RoundStartedAt time.Time
}

func (s *QuizSession) snapshot() QuizSession {
	cp := *s
	cp.Questions = make([]QuizQuestion, len(s.Questions))
	for i, q := range s.Questions {
		cp.Questions[i] = q.clone()
	}
	return cp
}

// Round - то, что показывается пользователю в одном раунде
type Round struct {
	Token   string
	Number  int
	Total   int
	Text    string
	Options []string
	Window  time.Duration
}
