package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	items := []Item{
		{Name: " Плов ", Category: "Гарячі страви", Price: 169, Weight: 300, Ingredients: []string{"Рис", " ", "рис", "Морква"}},
		{Name: "плов", Price: 999},
		{Name: "", Price: 10},
		{Name: "Вода", Price: 25.5},
	}

	facts := Normalize(items)
	require.Len(t, facts, 4)

	assert.Equal(t, Fact{ItemName: "Плов", Category: "Гарячі страви", Kind: KindPrice, Value: "169 ₴", Number: 169}, facts[0])
	assert.Equal(t, Fact{ItemName: "Плов", Category: "Гарячі страви", Kind: KindWeight, Value: "300 г", Number: 300}, facts[1])
	assert.Equal(t, KindIngredient, facts[2].Kind)
	assert.Equal(t, "Рис", facts[2].Value)
	assert.Equal(t, []string{"Морква"}, facts[2].Related)
	assert.Equal(t, "25.50 ₴", facts[3].Value)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"whole price", FormatPrice(149), "149 ₴"},
		{"fractional price", FormatPrice(42.5), "42.50 ₴"},
		{"weight", FormatWeight(200), "200 г"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestParseMenuFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "menu.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
items:
  - name: Борщ
    category: Супи
    price: 109
    weight: 350
    ingredients: [Буряк, Капуста]
`), 0o644))

	jsonPath := filepath.Join(dir, "menu.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"items":[{"name":"Деруни","price":139,"weight":260}]}`), 0o644))

	items, err := ParseMenuFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, Item{Name: "Борщ", Category: "Супи", Price: 109, Weight: 350, Ingredients: []string{"Буряк", "Капуста"}}, items[0])

	items, err = ParseMenuFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Деруни", items[0].Name)

	_, err = ParseMenuFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	txtPath := filepath.Join(dir, "menu.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = ParseMenuFile(txtPath)
	assert.Error(t, err)
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"))

	items, err := src.Fetch(context.Background())
	assert.Error(t, err)
	assert.Nil(t, items)
}

func TestPosterSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/menu.getProducts", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":[
			{"product_name":"Плов","category_name":"Гарячі страви","hidden":"0","price":{"1":"16900"},"out":300,
			 "ingredients":[{"ingredient_name":"Рис"},{"ingredient_name":"Морква"}]},
			{"product_name":"Секретне","hidden":"1","price":{"1":"100"}}
		]}`))
	}))
	defer srv.Close()

	items, err := NewPosterSource(srv.URL, "secret").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, Item{Name: "Плов", Category: "Гарячі страви", Price: 169, Weight: 300, Ingredients: []string{"Рис", "Морква"}}, items[0])
}

func TestPosterSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"http error", http.StatusInternalServerError, `{}`},
		{"api error", http.StatusOK, `{"error":{"code":10,"message":"bad token"}}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			_, err := NewPosterSource(srv.URL, "t").Fetch(context.Background())
			require.Error(t, err)
			_, traced := err.(interface{ StackTrace() errors.StackTrace })
			assert.True(t, traced, "error without stack: %v", err)
		})
	}
}
