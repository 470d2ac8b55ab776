package ledger

import (
	"context"
	"sync"
)

// MemoryLedger - fallback вариант (данные теряются при рестарте)
type MemoryLedger struct {
	mu   sync.RWMutex
	rows []Result
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		rows: make([]Result, 0),
	}
}

func (ml *MemoryLedger) AppendResult(ctx context.Context, res Result) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.rows = append(ml.rows, res)
	return nil
}

// Rows возвращает копию всех записей в порядке добавления
func (ml *MemoryLedger) Rows() []Result {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	rows := make([]Result, len(ml.rows))
	copy(rows, ml.rows)
	return rows
}

func (ml *MemoryLedger) Top(ctx context.Context, limit int) ([]Result, error) {
	return rank(ml.Rows(), limit), nil
}
