package service

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// QuestionBank - неизменяемый снимок вопросов одной генерации
type QuestionBank struct {
	questions   []QuizQuestion
	generatedAt time.Time
}

func newQuestionBank(questions []QuizQuestion, generatedAt time.Time) *QuestionBank {
	return &QuestionBank{questions: questions, generatedAt: generatedAt}
}

func (b *QuestionBank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.questions)
}

func (b *QuestionBank) GeneratedAt() time.Time {
	if b == nil {
		return time.Time{}
	}
	return b.generatedAt
}

// Questions возвращает копию всех вопросов банка
func (b *QuestionBank) Questions() []QuizQuestion {
	return b.Sample(nil, b.Len())
}

// Sample перемешивает вопросы и возвращает только limit штук.
// Если вопросов меньше limit, возвращаются все. Результат - копия,
// банк им не меняется. С r == nil порядок исходный.
func (b *QuestionBank) Sample(r *rand.Rand, limit int) []QuizQuestion {
	n := b.Len()
	if limit <= 0 || limit > n {
		limit = n
	}

	order := make([]int, n)
	if r != nil {
		order = r.Perm(n)
	} else {
		for i := range order {
			order[i] = i
		}
	}

	out := make([]QuizQuestion, limit)
	for i := 0; i < limit; i++ {
		out[i] = b.questions[order[i]].clone()
	}
	return out
}

// BankHolder держит текущий банк. Замена атомарная, сессии
// работают со своими копиями вопросов.
type BankHolder struct {
	current atomic.Pointer[QuestionBank]
}

func (h *BankHolder) Current() *QuestionBank {
	return h.current.Load()
}

func (h *BankHolder) Swap(b *QuestionBank) *QuestionBank {
	return h.current.Swap(b)
}

// CompareAndSwap меняет банк, только если текущий всё ещё old
func (h *BankHolder) CompareAndSwap(old, b *QuestionBank) bool {
	return h.current.CompareAndSwap(old, b)
}
