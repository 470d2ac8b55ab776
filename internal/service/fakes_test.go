package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/PoluyanbIch/MenuQuizBot/internal/catalog"
	"github.com/PoluyanbIch/MenuQuizBot/internal/ledger"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

// fire вызывает колбэк даже у остановленного таймера: так моделируется
// таймер, который уже сработал к моменту Stop
func (t *fakeTimer) fire() {
	t.f()
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fakePresenter struct {
	mu       sync.Mutex
	rounds   []Round
	messages []string
	results  []ledger.Result
	saveErrs []error
}

func (p *fakePresenter) PresentQuestion(ctx context.Context, userID int64, round Round) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rounds = append(p.rounds, round)
	return nil
}

func (p *fakePresenter) PresentMessage(ctx context.Context, userID int64, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
	return nil
}

func (p *fakePresenter) PresentResult(ctx context.Context, userID int64, res ledger.Result, saveErr error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, res)
	p.saveErrs = append(p.saveErrs, saveErr)
	return nil
}

func (p *fakePresenter) lastRound() Round {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rounds[len(p.rounds)-1]
}

func (p *fakePresenter) lastMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1]
}

type failingLedger struct{}

func (failingLedger) AppendResult(ctx context.Context, res ledger.Result) error {
	return errors.New("sheet is read-only")
}

// switchSource отдаёт items или ошибку, если fail выставлен
type switchSource struct {
	mu    sync.Mutex
	items []catalog.Item
	fail  bool
}

func (s *switchSource) Fetch(ctx context.Context) ([]catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("poster is down")
	}
	return s.items, nil
}

// priceMenu - n позиций с разными ценами, по одному вопросу о цене на каждую
func priceMenu(n int) []catalog.Item {
	items := make([]catalog.Item, n)
	for i := range items {
		items[i] = catalog.Item{
			Name:     "Страва " + string(rune('A'+i)),
			Category: "Тест",
			Price:    float64(100 + 10*i),
		}
	}
	return items
}
