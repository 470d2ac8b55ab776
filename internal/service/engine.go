package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/PoluyanbIch/MenuQuizBot/internal/catalog"
	"github.com/PoluyanbIch/MenuQuizBot/internal/ledger"
)

const (
	DefaultQuizSize     = 15
	DefaultAnswerWindow = 10 * time.Second
	maxUndelivered      = 100
)

// Presenter - сторона транспорта, которая показывает пользователю раунды
type Presenter interface {
	PresentQuestion(ctx context.Context, userID int64, round Round) error
	PresentMessage(ctx context.Context, userID int64, text string) error
	PresentResult(ctx context.Context, userID int64, res ledger.Result, saveErr error) error
}

type EngineConfig struct {
	QuizSize     int
	AnswerWindow time.Duration
	// пауза между ответом и следующим вопросом
	RoundPause time.Duration
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

type counters struct {
	started, finished, canceled atomic.Int64
	correct, incorrect, timedOut atomic.Int64
	stale, ledgerFailures        atomic.Int64
}

type Stats struct {
	ActiveSessions int       `json:"active_sessions"`
	BankSize       int       `json:"bank_size"`
	BankGenerated  time.Time `json:"bank_generated_at"`
	Started        int64     `json:"started"`
	Finished       int64     `json:"finished"`
	Canceled       int64     `json:"canceled"`
	Correct        int64     `json:"correct"`
	Incorrect      int64     `json:"incorrect"`
	TimedOut       int64     `json:"timed_out"`
	StaleEvents    int64     `json:"stale_events"`
	LedgerFailures int64     `json:"ledger_failures"`
}

// Engine ведёт раунды всех пользователей
type Engine struct {
	cfg       EngineConfig
	source    catalog.Source
	generator *Generator
	bank      BankHolder
	store     *SessionStore
	presenter Presenter
	results   ledger.Ledger
	clock     Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	stats counters

	undeliveredMu sync.Mutex
	undelivered   []ledger.Result
}

func NewEngine(cfg EngineConfig, source catalog.Source, presenter Presenter, results ledger.Ledger, opts ...Option) *Engine {
	if cfg.QuizSize <= 0 {
		cfg.QuizSize = DefaultQuizSize
	}
	if cfg.AnswerWindow <= 0 {
		cfg.AnswerWindow = DefaultAnswerWindow
	}

	e := &Engine{
		cfg:       cfg,
		source:    source,
		store:     NewSessionStore(),
		presenter: presenter,
		results:   results,
		clock:     realClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.generator = NewGenerator(rand.New(rand.NewSource(e.rng.Int63())))
	return e
}

// ReloadQuestionBank перечитывает каталог и атомарно меняет банк.
// Если каталог недоступен или вопросов не набралось, остаётся старый банк.
func (e *Engine) ReloadQuestionBank(ctx context.Context) (int, error) {
	items, err := e.source.Fetch(ctx)
	if err != nil {
		glog.Errorf("Error fetching catalog: %v", err)
		return e.bank.Current().Len(), errors.WithMessage(ErrCatalogUnavailable, err.Error())
	}

	bank := e.generator.Build(catalog.Normalize(items))
	if bank.Len() == 0 {
		glog.Warningf("Catalog with %d items produced no eligible questions", len(items))
		return e.bank.Current().Len(), ErrCatalogUnavailable
	}

	e.bank.Swap(bank)
	glog.Infof("Question bank reloaded: %d questions from %d menu items", bank.Len(), len(items))
	return bank.Len(), nil
}

// SeedQuestionBank строит банк из items, только если банк ещё пуст.
// Нужен для запуска со встроенным меню, когда каталог недоступен.
// Уже загруженный банк не трогает.
func (e *Engine) SeedQuestionBank(items []catalog.Item) (int, error) {
	if n := e.bank.Current().Len(); n > 0 {
		return n, nil
	}

	bank := e.generator.Build(catalog.Normalize(items))
	if bank.Len() == 0 {
		return 0, ErrCatalogUnavailable
	}

	if !e.bank.CompareAndSwap(nil, bank) {
		return e.bank.Current().Len(), nil
	}
	glog.Warningf("Question bank seeded with %d questions from %d built-in menu items", bank.Len(), len(items))
	return bank.Len(), nil
}

func (e *Engine) Bank() *QuestionBank {
	return e.bank.Current()
}

// Session возвращает копию активной сессии пользователя
func (e *Engine) Session(userID int64) (QuizSession, bool) {
	return e.store.Get(userID)
}

func (e *Engine) sample() []QuizQuestion {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()

	return e.bank.Current().Sample(e.rng, e.cfg.QuizSize)
}

// StartQuiz создаёт сессию и показывает первый вопрос. Активную сессию
// не трогает и возвращает ErrSessionActive.
func (e *Engine) StartQuiz(ctx context.Context, userID int64, identityLabel string) error {
	if e.bank.Current().Len() == 0 {
		return ErrCatalogUnavailable
	}
	if _, live := e.store.Get(userID); live {
		return ErrSessionActive
	}

	now := e.clock.Now()
	session := &QuizSession{
		UserID:        userID,
		IdentityLabel: identityLabel,
		Questions:     e.sample(),
		State:         StateIdle,
		StartedAt:     now,
	}

	entry, ok := e.store.create(session)
	if !ok {
		return ErrSessionActive
	}
	e.stats.started.Add(1)
	glog.V(1).Infof("Quiz started for user %d (%s), %d questions", userID, identityLabel, len(session.Questions))

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed {
		return nil // отменили раньше, чем успели показать первый вопрос
	}

	e.say(ctx, userID, msgQuizStarted(len(session.Questions), e.cfg.AnswerWindow))
	e.startRoundLocked(ctx, entry)
	return nil
}

// SubmitAnswer принимает ответ на текущий живой раунд
func (e *Engine) SubmitAnswer(ctx context.Context, userID int64, text string) error {
	return e.answer(ctx, userID, "", func(QuizQuestion) string { return text })
}

// SubmitRoundAnswer принимает ответ, привязанный к конкретному раунду
func (e *Engine) SubmitRoundAnswer(ctx context.Context, userID int64, token, text string) error {
	if token == "" {
		return ErrStaleRound
	}
	return e.answer(ctx, userID, token, func(QuizQuestion) string { return text })
}

// SubmitOption принимает ответ кнопкой: индекс варианта в раунде token.
// Индекс вне диапазона считается неправильным ответом.
func (e *Engine) SubmitOption(ctx context.Context, userID int64, token string, option int) error {
	if token == "" {
		return ErrStaleRound
	}
	return e.answer(ctx, userID, token, func(q QuizQuestion) string {
		if option < 0 || option >= len(q.Options) {
			return ""
		}
		return q.Options[option]
	})
}

func (e *Engine) answer(ctx context.Context, userID int64, token string, text func(QuizQuestion) string) error {
	entry := e.store.get(userID)
	if entry == nil {
		e.say(ctx, userID, msgNoSession)
		return ErrNoActiveSession
	}

	entry.mu.Lock()
	if entry.closed {
		entry.mu.Unlock()
		e.say(ctx, userID, msgNoSession)
		return ErrNoActiveSession
	}

	s := entry.session
	if s.State != StateAwaitingAnswer || (token != "" && token != s.RoundToken) {
		entry.mu.Unlock()
		e.stats.stale.Add(1)
		glog.V(2).Infof("Dropping stale answer from user %d", userID)
		return ErrStaleRound
	}

	// раунд наш: гасим токен и таймер, таймаут этого раунда станет no-op
	s.RoundToken = ""
	entry.stopTimer()

	q := s.Questions[s.CurrentIndex]
	if gradeAnswer(text(q), q.CorrectOption) {
		s.CorrectCount++
		e.stats.correct.Add(1)
		e.say(ctx, userID, msgCorrect)
	} else {
		e.stats.incorrect.Add(1)
		e.say(ctx, userID, msgIncorrect(q.CorrectOption))
	}

	res := e.advanceLocked(ctx, entry)
	entry.mu.Unlock()

	if res != nil {
		return e.deliver(ctx, res)
	}
	return nil
}

// gradeAnswer сравнивает без учёта регистра и пробелов по краям.
// Пустой ответ всегда неправильный.
func gradeAnswer(answer, correct string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	return strings.EqualFold(answer, strings.TrimSpace(correct))
}

func (e *Engine) expire(entry *sessionEntry, token string) {
	ctx := context.Background()

	entry.mu.Lock()
	s := entry.session
	if entry.closed || s.State != StateAwaitingAnswer || s.RoundToken != token {
		entry.mu.Unlock()
		e.stats.stale.Add(1)
		glog.V(2).Infof("Dropping stale deadline for user %d", s.UserID)
		return
	}

	s.RoundToken = ""
	entry.timer = nil
	e.stats.timedOut.Add(1)

	q := s.Questions[s.CurrentIndex]
	e.say(ctx, s.UserID, msgTimeUp(q.CorrectOption))

	res := e.advanceLocked(ctx, entry)
	entry.mu.Unlock()

	if res != nil {
		e.deliver(ctx, res)
	}
}

// startRoundLocked показывает вопрос CurrentIndex и взводит дедлайн
func (e *Engine) startRoundLocked(ctx context.Context, entry *sessionEntry) {
	s := entry.session
	q := s.Questions[s.CurrentIndex]

	token := uuid.NewString()
	s.RoundToken = token
	s.State = StateAwaitingAnswer
	s.RoundStartedAt = e.clock.Now()

	round := Round{
		Token:   token,
		Number:  s.CurrentIndex + 1,
		Total:   len(s.Questions),
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
		Window:  e.cfg.AnswerWindow,
	}
	if err := e.presenter.PresentQuestion(ctx, s.UserID, round); err != nil {
		glog.Warningf("Error presenting question to user %d: %v", s.UserID, err)
	}

	entry.timer = e.clock.AfterFunc(e.cfg.AnswerWindow, func() {
		e.expire(entry, token)
	})
}

// advanceLocked закрывает раунд и переходит к следующему. Возвращает
// результат, если вопросы кончились: его надо отдать в журнал после Unlock.
func (e *Engine) advanceLocked(ctx context.Context, entry *sessionEntry) *ledger.Result {
	s := entry.session
	s.CurrentIndex++
	s.State = StateIdle

	if s.CurrentIndex >= len(s.Questions) {
		return e.finishLocked(entry)
	}

	if e.cfg.RoundPause <= 0 {
		e.startRoundLocked(ctx, entry)
		return nil
	}

	next := s.CurrentIndex
	entry.timer = e.clock.AfterFunc(e.cfg.RoundPause, func() {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		if entry.closed || s.State != StateIdle || s.CurrentIndex != next {
			return
		}
		e.startRoundLocked(context.Background(), entry)
	})
	return nil
}

func (e *Engine) finishLocked(entry *sessionEntry) *ledger.Result {
	s := entry.session
	s.State = StateFinished
	s.RoundToken = ""
	entry.stopTimer()
	entry.closed = true
	e.store.remove(s.UserID, entry)
	e.stats.finished.Add(1)

	total := len(s.Questions)
	pct := Percentage(s.CorrectCount, total)
	return &ledger.Result{
		UserID:        s.UserID,
		IdentityLabel: s.IdentityLabel,
		Score:         s.CorrectCount,
		Total:         total,
		Percentage:    pct,
		Grade:         string(GradeFor(pct)),
		Timestamp:     e.clock.Now(),
	}
}

// deliver пишет результат в журнал. Ошибка записи не теряет результат:
// он логируется и остаётся в Undelivered.
func (e *Engine) deliver(ctx context.Context, res *ledger.Result) error {
	var saveErr error
	if err := e.results.AppendResult(ctx, *res); err != nil {
		e.stats.ledgerFailures.Add(1)
		glog.Errorf("Error saving result %+v: %v", *res, err)
		e.retain(*res)
		saveErr = errors.WithMessage(ErrLedgerWriteFailed, err.Error())
	} else {
		glog.V(1).Infof("Quiz finished for user %d: %d/%d", res.UserID, res.Score, res.Total)
	}

	if err := e.presenter.PresentResult(ctx, res.UserID, *res, saveErr); err != nil {
		glog.Warningf("Error presenting result to user %d: %v", res.UserID, err)
	}
	return saveErr
}

func (e *Engine) retain(res ledger.Result) {
	e.undeliveredMu.Lock()
	defer e.undeliveredMu.Unlock()

	e.undelivered = append(e.undelivered, res)
	if len(e.undelivered) > maxUndelivered {
		e.undelivered = e.undelivered[len(e.undelivered)-maxUndelivered:]
	}
}

// Undelivered - результаты, которые не удалось записать в журнал
func (e *Engine) Undelivered() []ledger.Result {
	e.undeliveredMu.Lock()
	defer e.undeliveredMu.Unlock()

	out := make([]ledger.Result, len(e.undelivered))
	copy(out, e.undelivered)
	return out
}

// CancelQuiz прерывает тест без записи результата
func (e *Engine) CancelQuiz(ctx context.Context, userID int64) error {
	entry := e.store.get(userID)
	if entry == nil {
		e.say(ctx, userID, msgNoSession)
		return ErrNoActiveSession
	}

	entry.mu.Lock()
	if entry.closed {
		entry.mu.Unlock()
		e.say(ctx, userID, msgNoSession)
		return ErrNoActiveSession
	}

	s := entry.session
	entry.stopTimer()
	entry.closed = true
	s.RoundToken = ""
	s.State = StateFinished
	e.store.remove(userID, entry)
	entry.mu.Unlock()

	e.stats.canceled.Add(1)
	glog.V(1).Infof("Quiz canceled for user %d at question %d/%d", userID, s.CurrentIndex, len(s.Questions))
	e.say(ctx, userID, msgCanceled)
	return nil
}

// Close останавливает таймеры всех активных сессий и закрывает их без
// записи результата. Вызывается при остановке бота.
func (e *Engine) Close() {
	n := 0
	for _, entry := range e.store.entries() {
		entry.mu.Lock()
		if !entry.closed {
			entry.stopTimer()
			entry.closed = true
			entry.session.RoundToken = ""
			entry.session.State = StateFinished
			n++
		}
		e.store.remove(entry.session.UserID, entry)
		entry.mu.Unlock()
	}
	if n > 0 {
		glog.Infof("Engine closed, %d active sessions dropped", n)
	}
}

func (e *Engine) Stats() Stats {
	bank := e.bank.Current()
	return Stats{
		ActiveSessions: e.store.Len(),
		BankSize:       bank.Len(),
		BankGenerated:  bank.GeneratedAt(),
		Started:        e.stats.started.Load(),
		Finished:       e.stats.finished.Load(),
		Canceled:       e.stats.canceled.Load(),
		Correct:        e.stats.correct.Load(),
		Incorrect:      e.stats.incorrect.Load(),
		TimedOut:       e.stats.timedOut.Load(),
		StaleEvents:    e.stats.stale.Load(),
		LedgerFailures: e.stats.ledgerFailures.Load(),
	}
}

func (e *Engine) say(ctx context.Context, userID int64, text string) {
	if err := e.presenter.PresentMessage(ctx, userID, text); err != nil {
		glog.Warningf("Error sending message to user %d: %v", userID, err)
	}
}
