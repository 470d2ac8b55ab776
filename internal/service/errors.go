package service

import "github.com/pkg/errors"

var (
	// ErrCatalogUnavailable - в банке нет ни одного вопроса, тест не стартует
	ErrCatalogUnavailable = errors.New("question bank is empty")
	// ErrLedgerWriteFailed - результат посчитан, но в журнал не записан
	ErrLedgerWriteFailed = errors.New("ledger write failed")
	// ErrNoActiveSession - ответ или отмена без активного теста
	ErrNoActiveSession = errors.New("no active quiz session")
	// ErrStaleRound - событие относится к уже закрытому раунду
	ErrStaleRound = errors.New("stale round event")
	ErrSessionActive = errors.New("quiz session already active")
)
