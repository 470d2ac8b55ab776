package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultPosterURL = "https://joinposter.com/api"

// PosterSource забирает меню из Poster POS (menu.getProducts)
type PosterSource struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewPosterSource(baseURL, token string) *PosterSource {
	if baseURL == "" {
		baseURL = DefaultPosterURL
	}
	return &PosterSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type posterIngredient struct {
	Name string `json:"ingredient_name"`
}

type posterProduct struct {
	Name         string             `json:"product_name"`
	CategoryName string             `json:"category_name"`
	Hidden       string             `json:"hidden"`
	Price        map[string]string  `json:"price"`
	Out          float64            `json:"out"`
	Ingredients  []posterIngredient `json:"ingredients"`
}

type posterResponse struct {
	Response []posterProduct `json:"response"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (ps *PosterSource) Fetch(ctx context.Context) ([]Item, error) {
	q := url.Values{}
	q.Set("token", ps.token)
	endpoint := fmt.Sprintf("%s/menu.getProducts?%s", ps.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := ps.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "poster request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload posterResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "error decoding poster response")
	}
	if payload.Error != nil {
		return nil, errors.Errorf("poster error %d: %s", payload.Error.Code, payload.Error.Message)
	}

	items := make([]Item, 0, len(payload.Response))
	for _, p := range payload.Response {
		if p.Hidden == "1" {
			continue
		}
		item := Item{
			Name:     p.Name,
			Category: p.CategoryName,
			Price:    posterPrice(p.Price),
			Weight:   int(p.Out),
		}
		for _, ing := range p.Ingredients {
			item.Ingredients = append(item.Ingredients, ing.Name)
		}
		items = append(items, item)
	}

	return items, nil
}

// posterPrice берёт цену первой точки продаж. Poster отдаёт копейки строкой.
func posterPrice(prices map[string]string) float64 {
	if len(prices) == 0 {
		return 0
	}
	spots := make([]string, 0, len(prices))
	for spot := range prices {
		spots = append(spots, spot)
	}
	sort.Strings(spots)

	kop, err := strconv.ParseFloat(prices[spots[0]], 64)
	if err != nil {
		return 0
	}
	return kop / 100
}
