package service

import "sync"

// sessionEntry - ячейка одного пользователя. Все изменения сессии идут под mu,
// это и есть точка сериализации ответа и таймаута одного раунда.
type sessionEntry struct {
	mu      sync.Mutex
	session *QuizSession
	// таймер дедлайна раунда или паузы перед следующим вопросом
	timer Timer
	// closed выставляется при завершении или отмене, после этого
	// любые события по ячейке игнорируются
	closed bool
}

func (e *sessionEntry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// SessionStore хранит не больше одной активной сессии на пользователя
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*sessionEntry),
	}
}

func (st *SessionStore) get(userID int64) *sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.sessions[userID]
}

// create кладёт сессию, только если у пользователя её ещё нет
func (st *SessionStore) create(s *QuizSession) (*sessionEntry, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[s.UserID]; exists {
		return nil, false
	}

	entry := &sessionEntry{session: s}
	st.sessions[s.UserID] = entry
	return entry, true
}

// remove удаляет ячейку, если она всё ещё текущая для пользователя
func (st *SessionStore) remove(userID int64, entry *sessionEntry) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sessions[userID] == entry {
		delete(st.sessions, userID)
	}
}

// entries - снимок всех ячеек, блокировки ячеек берутся уже без st.mu
func (st *SessionStore) entries() []*sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]*sessionEntry, 0, len(st.sessions))
	for _, entry := range st.sessions {
		out = append(out, entry)
	}
	return out
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// Get возвращает копию сессии пользователя
func (st *SessionStore) Get(userID int64) (QuizSession, bool) {
	entry := st.get(userID)
	if entry == nil {
		return QuizSession{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed {
		return QuizSession{}, false
	}
	return entry.session.snapshot(), true
}
