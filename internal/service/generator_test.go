package service

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/MenuQuizBot/internal/catalog"
)

func assertDistinct(t *testing.T, values []string) {
	t.Helper()
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		assert.False(t, seen[key], "duplicate value %q in %v", v, values)
		seen[key] = true
	}
}

func TestSampleDistractors(t *testing.T) {
	tests := []struct {
		name    string
		truth   string
		pool    []string
		exclude []string
		wantOK  bool
	}{
		{
			name:   "enough candidates",
			truth:  "200 г",
			pool:   []string{"180 г", "220 г", "250 г", "300 г"},
			wantOK: true,
		},
		{
			name:   "duplicates collapse",
			truth:  "Рис",
			pool:   []string{"Фета", "фета", "Фета ", "Буряк", "Буряк"},
			wantOK: false,
		},
		{
			name:   "truth is never a candidate",
			truth:  "Фета",
			pool:   []string{"ФЕТА", "Фета", "Рис", "Буряк"},
			wantOK: false,
		},
		{
			name:    "related values are excluded",
			truth:   "Картопля",
			pool:    []string{"Цибуля", "Рис", "Буряк", "Фета"},
			exclude: []string{"Цибуля"},
			wantOK:  true,
		},
		{
			name:    "exclusions can make fact ineligible",
			truth:   "Картопля",
			pool:    []string{"Цибуля", "Рис", "Буряк"},
			exclude: []string{"Цибуля"},
			wantOK:  false,
		},
		{
			name:   "empty pool",
			truth:  "149 ₴",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rand.New(rand.NewSource(3))
			for i := 0; i < 50; i++ {
				got, ok := SampleDistractors(r, tt.truth, tt.pool, tt.exclude...)
				require.Equal(t, tt.wantOK, ok)
				if !ok {
					assert.Nil(t, got)
					return
				}
				require.Len(t, got, 3)
				assertDistinct(t, append([]string{tt.truth}, got...))
				for _, d := range got {
					assert.NotContains(t, tt.exclude, d)
				}
			}
		})
	}
}

func TestSampleDistractorsIsUniform(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	pool := []string{"a", "b", "c", "d", "e", "f"}
	counts := make(map[string]int)

	const draws = 6000
	for i := 0; i < draws; i++ {
		got, ok := SampleDistractors(r, "truth", pool)
		require.True(t, ok)
		for _, d := range got {
			counts[d]++
		}
	}

	// каждый кандидат попадает в половину выборок
	for _, v := range pool {
		assert.InDelta(t, draws/2, counts[v], draws*0.05, "candidate %s", v)
	}
}

func TestNumericDistractors(t *testing.T) {
	tests := []struct {
		name string
		fact catalog.Fact
	}{
		{"price", catalog.Fact{Kind: catalog.KindPrice, Value: "169 ₴", Number: 169}},
		{"cheap price", catalog.Fact{Kind: catalog.KindPrice, Value: "5 ₴", Number: 5}},
		{"weight", catalog.Fact{Kind: catalog.KindWeight, Value: "200 г", Number: 200}},
		{"tiny weight", catalog.Fact{Kind: catalog.KindWeight, Value: "10 г", Number: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NumericDistractors(tt.fact)
			require.GreaterOrEqual(t, len(got), 3)
			assertDistinct(t, append([]string{tt.fact.Value}, got...))
			for _, v := range got {
				assert.NotContains(t, v, "-")
				assert.NotEqual(t, "0 г", v)
				assert.NotEqual(t, "0 ₴", v)
			}
		})
	}

	assert.Nil(t, NumericDistractors(catalog.Fact{Kind: catalog.KindIngredient, Value: "Рис"}))
}

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, 149.0, roundPrice(152.1))
	assert.Equal(t, 189.0, roundPrice(185))
	assert.Equal(t, 12.0, roundPrice(11.6))
}

func assertQuestion(t *testing.T, q QuizQuestion) {
	t.Helper()
	require.Len(t, q.Options, 4)
	assert.Contains(t, q.Options, q.CorrectOption)
	assertDistinct(t, q.Options)
	assert.NotEmpty(t, q.ID)
	assert.NotEmpty(t, q.Text)
}

func TestGenerator_Build(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(5)))
	bank := g.Build(catalog.Normalize(catalog.DefaultItems()))

	// 8 позиций: цена и вес у всех, ингредиенты почти у всех
	require.Greater(t, bank.Len(), 16)

	perItemKind := make(map[string]int)
	for _, q := range bank.Questions() {
		assertQuestion(t, q)
		perItemKind[q.Text]++
	}
	for text, n := range perItemKind {
		assert.Equal(t, 1, n, "question %q generated twice", text)
	}
}

func TestGenerator_SkipsIneligible(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(5)))

	// у ингредиентов только два альтернативных значения, а цены и веса
	// добираются арифметикой
	items := []catalog.Item{
		{Name: "Борщ", Price: 109, Ingredients: []string{"Буряк"}},
		{Name: "Плов", Weight: 300, Ingredients: []string{"Рис"}},
		{Name: "Деруни", Ingredients: []string{"Картопля"}},
	}
	bank := g.Build(catalog.Normalize(items))

	require.Equal(t, 2, bank.Len())
	for _, q := range bank.Questions() {
		assertQuestion(t, q)
		assert.NotEqual(t, catalog.KindIngredient, q.Kind)
	}
}

func TestGenerator_IngredientExcludesOwnIngredients(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(9)))
	items := []catalog.Item{
		{Name: "Вареники", Ingredients: []string{"Картопля", "Цибуля"}},
		{Name: "Салат", Ingredients: []string{"Цибуля", "Огірок"}},
		{Name: "Борщ", Ingredients: []string{"Буряк"}},
		{Name: "Плов", Ingredients: []string{"Рис"}},
		{Name: "Сирники", Ingredients: []string{"Сир"}},
	}

	for i := 0; i < 20; i++ {
		bank := g.Build(catalog.Normalize(items))
		for _, q := range bank.Questions() {
			assertQuestion(t, q)
			if strings.Contains(q.Text, "Вареники") {
				assert.NotContains(t, q.Options, "Цибуля")
			}
			if strings.Contains(q.Text, "Салат") {
				assert.NotContains(t, q.Options, "Огірок")
			}
		}
	}
}

func TestQuestionBank_Sample(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))
	bank := g.Build(catalog.Normalize(priceMenu(20)))
	require.Equal(t, 20, bank.Len())

	r := rand.New(rand.NewSource(2))
	sample := bank.Sample(r, 15)
	require.Len(t, sample, 15)

	ids := make(map[string]bool)
	for _, q := range sample {
		assert.False(t, ids[q.ID], "question sampled twice")
		ids[q.ID] = true
	}

	assert.Len(t, bank.Sample(r, 50), 20)
	assert.Len(t, bank.Sample(r, 0), 20)

	// выборка - копия, банк от неё не меняется
	orig := bank.Questions()[0].Options[0]
	all := bank.Sample(nil, 20)
	all[0].Options[0] = "mutated"
	assert.Equal(t, orig, bank.Questions()[0].Options[0])
}

func TestQuestionBank_Nil(t *testing.T) {
	var bank *QuestionBank
	assert.Equal(t, 0, bank.Len())
	assert.Empty(t, bank.Sample(rand.New(rand.NewSource(1)), 5))
	assert.True(t, bank.GeneratedAt().IsZero())

	var holder BankHolder
	assert.Nil(t, holder.Current())
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score, total int
		percentage   float64
		grade        Grade
	}{
		{9, 15, 60, GradeFair},
		{12, 15, 80, GradeGood},
		{14, 15, 93.33333333333333, GradeExcellent},
		{9, 10, 90, GradeExcellent},
		{7, 10, 70, GradeGood},
		{5, 10, 50, GradeFair},
		{4, 10, 40, GradePoor},
		{0, 0, 0, GradePoor},
	}

	for _, tt := range tests {
		pct := Percentage(tt.score, tt.total)
		assert.InDelta(t, tt.percentage, pct, 1e-9, "%d/%d", tt.score, tt.total)
		assert.Equal(t, tt.grade, GradeFor(pct), "%d/%d", tt.score, tt.total)
	}
}
