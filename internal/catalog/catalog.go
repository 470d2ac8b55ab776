package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Item - позиция меню в том виде, в каком её отдаёт источник каталога
type Item struct {
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Price       float64  `json:"price" yaml:"price"`
	Weight      int      `json:"weight" yaml:"weight"`
	Ingredients []string `json:"ingredients" yaml:"ingredients"`
}

// Source отдаёт текущее меню. Вызывается на старте и при перезагрузке.
type Source interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// Static - каталог, зашитый в память
type Static []Item

func (s Static) Fetch(ctx context.Context) ([]Item, error) {
	items := make([]Item, len(s))
	copy(items, s)
	return items, nil
}

type FactKind string

const (
	KindPrice      FactKind = "price"
	KindWeight     FactKind = "weight"
	KindIngredient FactKind = "ingredient"
)

// Fact - один проверяемый факт о позиции меню
type Fact struct {
	ItemName string
	Category string
	Kind     FactKind
	Value    string
	// Number - числовое значение для цены и веса, 0 для ингредиентов
	Number float64
	// Related - другие верные значения того же типа для этой позиции
	// (остальные ингредиенты блюда). Они не могут быть дистракторами.
	Related []string
}

// Numeric сообщает, можно ли генерировать варианты для факта арифметикой
func (f Fact) Numeric() bool {
	return f.Kind == KindPrice || f.Kind == KindWeight
}

// Normalize превращает позиции меню в плоский список фактов.
// Каждая позиция даёт не больше одного факта каждого типа.
func Normalize(items []Item) []Fact {
	var facts []Fact
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue // дубли по имени: берём первую запись
		}
		seen[key] = true

		category := strings.TrimSpace(item.Category)

		if item.Price > 0 {
			facts = append(facts, Fact{
				ItemName: name,
				Category: category,
				Kind:     KindPrice,
				Value:    FormatPrice(item.Price),
				Number:   item.Price,
			})
		}

		if item.Weight > 0 {
			facts = append(facts, Fact{
				ItemName: name,
				Category: category,
				Kind:     KindWeight,
				Value:    FormatWeight(item.Weight),
				Number:   float64(item.Weight),
			})
		}

		ingredients := cleanIngredients(item.Ingredients)
		if len(ingredients) > 0 {
			facts = append(facts, Fact{
				ItemName: name,
				Category: category,
				Kind:     KindIngredient,
				Value:    ingredients[0],
				Related:  ingredients[1:],
			})
		}
	}

	return facts
}

func cleanIngredients(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, ing := range raw {
		ing = strings.TrimSpace(ing)
		if ing == "" {
			continue
		}
		key := strings.ToLower(ing)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ing)
	}
	return out
}

// FormatPrice форматирует цену в гривнах: "169 ₴" или "42.50 ₴"
func FormatPrice(price float64) string {
	if price == math.Trunc(price) {
		return fmt.Sprintf("%d ₴", int64(price))
	}
	return fmt.Sprintf("%.2f ₴", price)
}

// FormatWeight форматирует вес в граммах: "200 г"
func FormatWeight(grams int) string {
	return fmt.Sprintf("%d г", grams)
}
