package service

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/PoluyanbIch/MenuQuizBot/internal/catalog"
)

// Generator собирает банк вопросов из фактов каталога
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(r *rand.Rand) *Generator {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: r}
}

// Build строит по вопросу на каждый подходящий факт. Факты, для которых
// не набирается трёх различных дистракторов, пропускаются.
func (g *Generator) Build(facts []catalog.Fact) *QuestionBank {
	g.mu.Lock()
	defer g.mu.Unlock()

	pools := make(map[catalog.FactKind][]string)
	for _, f := range facts {
		pools[f.Kind] = append(pools[f.Kind], f.Value)
		pools[f.Kind] = append(pools[f.Kind], f.Related...)
	}

	used := make(map[string]bool, len(facts))
	var questions []QuizQuestion
	skipped := 0

	for _, f := range facts {
		key := strings.ToLower(f.ItemName) + "\x00" + string(f.Kind)
		if used[key] {
			continue
		}

		q, ok := g.buildQuestion(f, pools[f.Kind])
		if !ok {
			skipped++
			continue
		}
		used[key] = true
		questions = append(questions, q)
	}

	glog.V(1).Infof("Generated %d questions from %d facts, %d skipped", len(questions), len(facts), skipped)
	return newQuestionBank(questions, time.Now())
}

func (g *Generator) buildQuestion(f catalog.Fact, pool []string) (QuizQuestion, bool) {
	truth := strings.TrimSpace(f.Value)
	if truth == "" {
		return QuizQuestion{}, false
	}

	candidates := distractorCandidates(truth, pool, f.Related)
	if len(candidates) < distractorCount && f.Numeric() {
		candidates = distractorCandidates(truth, append(candidates, NumericDistractors(f)...), f.Related)
	}

	distractors, ok := pick(g.rng, candidates)
	if !ok {
		return QuizQuestion{}, false
	}

	options := make([]string, 0, distractorCount+1)
	options = append(options, truth)
	options = append(options, distractors...)
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	category := f.Category
	if category == "" {
		category = string(f.Kind)
	}

	return QuizQuestion{
		ID:            uuid.NewString(),
		Text:          questionText(f),
		Options:       options,
		CorrectOption: truth,
		Category:      category,
		Kind:          f.Kind,
	}, true
}

func questionText(f catalog.Fact) string {
	switch f.Kind {
	case catalog.KindPrice:
		return fmt.Sprintf("💰 Яка ціна страви «%s»?", f.ItemName)
	case catalog.KindWeight:
		return fmt.Sprintf("⚖️ Яка вага страви «%s»?", f.ItemName)
	case catalog.KindIngredient:
		return fmt.Sprintf("🥕 Що входить до складу страви «%s»?", f.ItemName)
	default:
		return f.ItemName
	}
}
