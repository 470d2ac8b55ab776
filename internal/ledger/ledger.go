package ledger

import (
	"context"
	"sort"
	"time"
)

// Result - итог одного пройденного теста
type Result struct {
	UserID        int64     `json:"user_id"`
	IdentityLabel string    `json:"identity_label"`
	Score         int       `json:"score"`
	Total         int       `json:"total"`
	Percentage    float64   `json:"percentage"`
	Grade         string    `json:"grade"`
	Timestamp     time.Time `json:"timestamp"`
}

// Ledger - журнал результатов, только дозапись
type Ledger interface {
	AppendResult(ctx context.Context, res Result) error
}

// Board умеет строить лидерборд по журналу
type Board interface {
	Top(ctx context.Context, limit int) ([]Result, error)
}

// LeaderboardLedger - журнал, который умеет и то и другое
type LeaderboardLedger interface {
	Ledger
	Board
}

// better сравнивает результаты: сначала процент, потом количество очков
func better(a, b Result) bool {
	if a.Percentage == b.Percentage {
		return a.Score > b.Score
	}
	return a.Percentage > b.Percentage
}

// rank оставляет лучший результат каждого пользователя и сортирует
func rank(rows []Result, limit int) []Result {
	best := make(map[int64]int)
	var sorted []Result

	for _, row := range rows {
		i, found := best[row.UserID]
		if !found {
			best[row.UserID] = len(sorted)
			sorted = append(sorted, row)
			continue
		}
		// Обновляем если результат лучше
		if better(row, sorted[i]) {
			sorted[i] = row
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return better(sorted[i], sorted[j])
	})

	if limit <= 0 || limit > len(sorted) {
		limit = len(sorted)
	}

	return sorted[:limit]
}
