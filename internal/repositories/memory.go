package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/interview-simulator/internal/models"
)

// MemoryStore keeps sessions, turns and reports in process memory. It backs
// the practice CLI and tests; records handed out are copies.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]models.Session
	turns    map[uuid.UUID][]models.Turn
	reports  map[uuid.UUID]models.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]models.Session),
		turns:    make(map[uuid.UUID][]models.Turn),
		reports:  make(map[uuid.UUID]models.Report),
	}
}

// Sessions returns a SessionRepository view of the store.
func (m *MemoryStore) Sessions() SessionRepository { return memorySessions{m} }

// Turns returns a TurnRepository view of the store.
func (m *MemoryStore) Turns() TurnRepository { return memoryTurns{m} }

// Reports returns a ReportRepository view of the store.
func (m *MemoryStore) Reports() ReportRepository { return memoryReports{m} }

type memorySessions struct{ m *MemoryStore }

func (r memorySessions) Create(ctx context.Context, session *models.Session, first *models.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if _, exists := r.m.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.m.sessions[session.ID] = cloneSession(*session)

	if first != nil {
		first.SessionID = session.ID
		r.m.appendLocked(first)
	}
	return nil
}

func (r memorySessions) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	out := cloneSession(s)
	return &out, nil
}

func (r memorySessions) Save(ctx context.Context, session *models.Session, next *models.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.sessions[session.ID]; !ok {
		return fmt.Errorf("session %s: %w", session.ID, ErrNotFound)
	}

	session.UpdatedAt = time.Now()
	r.m.sessions[session.ID] = cloneSession(*session)

	if next != nil {
		next.SessionID = session.ID
		r.m.appendLocked(next)
	}
	return nil
}

func (r memorySessions) FindCompletedWithoutReport(ctx context.Context, limit int) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []models.Session
	for id, s := range r.m.sessions {
		if !s.Completed {
			continue
		}
		if _, ok := r.m.reports[id]; ok {
			continue
		}
		out = append(out, cloneSession(s))
	}

	sort.Slice(out, func(i, j int) bool {
		return completedAt(out[i]).Before(completedAt(out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryTurns struct{ m *MemoryStore }

func (r memoryTurns) Append(ctx context.Context, turn *models.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.sessions[turn.SessionID]; !ok {
		return fmt.Errorf("session %s: %w", turn.SessionID, ErrNotFound)
	}
	r.m.appendLocked(turn)
	return nil
}

func (r memoryTurns) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	turns := r.m.turns[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r memoryTurns) Last(ctx context.Context, sessionID uuid.UUID) (*models.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	turns := r.m.turns[sessionID]
	if len(turns) == 0 {
		return nil, fmt.Errorf("last turn of session %s: %w", sessionID, ErrNotFound)
	}
	last := turns[len(turns)-1]
	return &last, nil
}

type memoryReports struct{ m *MemoryStore }

func (r memoryReports) Upsert(ctx context.Context, report *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now()
	if existing, ok := r.m.reports[report.SessionID]; ok {
		report.CreatedAt = existing.CreatedAt
	} else {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	r.m.reports[report.SessionID] = cloneReport(*report)
	return nil
}

func (r memoryReports) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	report, ok := r.m.reports[sessionID]
	if !ok {
		return nil, fmt.Errorf("report for session %s: %w", sessionID, ErrNotFound)
	}
	out := cloneReport(report)
	return &out, nil
}

// appendLocked requires m.mu to be held for writing.
func (m *MemoryStore) appendLocked(turn *models.Turn) {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	turn.SequenceNumber = len(m.turns[turn.SessionID]) + 1
	turn.CreatedAt = time.Now()
	m.turns[turn.SessionID] = append(m.turns[turn.SessionID], *turn)
}

func cloneSession(s models.Session) models.Session {
	s.SeedQuestions = cloneStrings(s.SeedQuestions)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		s.CompletedAt = &at
	}
	return s
}

func cloneReport(r models.Report) models.Report {
	r.Strengths = cloneStrings(r.Strengths)
	r.Risks = cloneStrings(r.Risks)
	r.Recommendations = cloneStrings(r.Recommendations)
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func completedAt(s models.Session) time.Time {
	if s.CompletedAt == nil {
		return time.Time{}
	}
	return *s.CompletedAt
}
