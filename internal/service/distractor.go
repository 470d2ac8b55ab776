package service

import (
	"math"
	"math/rand"
	"strings"

	"github.com/PoluyanbIch/MenuQuizBot/internal/catalog"
)

const distractorCount = 3

// коэффициенты для арифметических дистракторов, в порядке предпочтения
var numericRatios = []float64{0.9, 1.1, 0.8, 1.2, 0.7, 1.3, 1.5}

func normAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// distractorCandidates убирает дубли из пула, а также правильный ответ и
// другие верные значения. Сравнение без учёта регистра, чтобы проверка
// ответа никогда не засчитала дистрактор.
func distractorCandidates(truth string, pool []string, exclude []string) []string {
	banned := make(map[string]bool, len(exclude)+1)
	banned[normAnswer(truth)] = true
	for _, e := range exclude {
		banned[normAnswer(e)] = true
	}

	out := make([]string, 0, len(pool))
	for _, v := range pool {
		key := normAnswer(v)
		if key == "" || banned[key] {
			continue
		}
		banned[key] = true
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

// SampleDistractors выбирает 3 неправильных варианта из пула равновероятно
// без возвращения. ok=false если различных кандидатов меньше трёх.
func SampleDistractors(r *rand.Rand, truth string, pool []string, exclude ...string) ([]string, bool) {
	candidates := distractorCandidates(truth, pool, exclude)
	return pick(r, candidates)
}

func pick(r *rand.Rand, candidates []string) ([]string, bool) {
	if len(candidates) < distractorCount {
		return nil, false
	}
	perm := r.Perm(len(candidates))
	out := make([]string, distractorCount)
	for i := range out {
		out[i] = candidates[perm[i]]
	}
	return out, true
}

// NumericDistractors генерирует правдоподобные цены или вес вокруг
// правильного значения. Все значения положительные, различные и не равны truth.
func NumericDistractors(fact catalog.Fact) []string {
	if !fact.Numeric() || fact.Number <= 0 {
		return nil
	}

	seen := map[string]bool{normAnswer(fact.Value): true}
	var out []string
	for _, ratio := range numericRatios {
		var value string
		switch fact.Kind {
		case catalog.KindPrice:
			p := roundPrice(fact.Number * ratio)
			if p <= 0 {
				continue
			}
			value = catalog.FormatPrice(p)
		case catalog.KindWeight:
			w := roundWeight(fact.Number * ratio)
			if w <= 0 {
				continue
			}
			value = catalog.FormatWeight(w)
		}
		if seen[normAnswer(value)] {
			continue
		}
		seen[normAnswer(value)] = true
		out = append(out, value)
	}
	return out
}

// roundPrice округляет "по-ресторанному": 152.1 -> 149
func roundPrice(p float64) float64 {
	if p < 20 {
		return math.Round(p)
	}
	return math.Round(p/10)*10 - 1
}

// roundWeight: до грамма для маленьких порций, дальше до 5 и 10 г
func roundWeight(w float64) int {
	switch {
	case w < 50:
		return int(math.Round(w))
	case w < 100:
		return int(math.Round(w/5) * 5)
	default:
		return int(math.Round(w/10) * 10)
	}
}
