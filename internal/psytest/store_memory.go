package psytest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

type memoryStore struct {
	mu       sync.RWMutex
	tests    map[string]TestDefinition
	stats    map[string]TestStats
	attempts map[string]Attempt
	details  map[string][]AnswerDetail
	// failFactorScores simulates a legacy store without the factor-score field.
	failFactorScores bool
}

// NewMemoryStore returns a Store kept entirely in process memory.
func NewMemoryStore() Store {
	return &memoryStore{
		tests:    map[string]TestDefinition{},
		stats:    map[string]TestStats{},
		attempts: map[string]Attempt{},
		details:  map[string][]AnswerDetail{},
	}
}

func (m *memoryStore) PutTest(_ context.Context, d TestDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	if prev, ok := m.tests[d.ID]; ok {
		d.CreatedAt = prev.CreatedAt
	} else {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	m.tests[d.ID] = cloneDefinition(d)
	if _, ok := m.stats[d.ID]; !ok {
		m.stats[d.ID] = TestStats{TestID: d.ID}
	}
	return nil
}

func (m *memoryStore) GetTestWithQuestions(_ context.Context, id string) (TestDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.tests[id]
	if !ok {
		return TestDefinition{}, fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	return cloneDefinition(d), nil
}

func (m *memoryStore) ListTests(_ context.Context, opts ListOpts) ([]TestSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(opts.Q))
	out := make([]TestSummary, 0, len(m.tests))
	for _, d := range m.tests {
		if q != "" && !strings.Contains(strings.ToLower(d.Title), q) {
			continue
		}
		out = append(out, TestSummary{ID: d.ID, Title: d.Title, TestType: d.TestType, QuestionCount: len(d.Questions), CreatedAt: d.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return page(out, opts.Offset, clampLimit(opts.Limit)), nil
}

func (m *memoryStore) GetTestStats(_ context.Context, testID string) (TestStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stats[testID]
	if !ok {
		return TestStats{}, fmt.Errorf("%w: %s", ErrTestNotFound, testID)
	}
	return st, nil
}

func (m *memoryStore) IncrementTestStats(_ context.Context, testID string, percentage float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[testID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTestNotFound, testID)
	}
	st.AvgPercentage = (st.AvgPercentage*float64(st.AttemptsCount) + percentage) / float64(st.AttemptsCount+1)
	st.AttemptsCount++
	m.stats[testID] = st
	return nil
}

func (m *memoryStore) SaveAttempt(_ context.Context, a Attempt, opts SaveOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.FactorScores != nil && !opts.OmitFactorScores && m.failFactorScores {
		return "", ErrFactorScoresUnsupported
	}
	if prev, ok := m.attempts[a.ID]; ok && prev.Status.Terminal() {
		return "", ErrAttemptClosed
	}
	if opts.OmitFactorScores {
		a.FactorScores = nil
	}
	m.attempts[a.ID] = cloneAttempt(a)
	return a.ID, nil
}

func (m *memoryStore) SaveAnswerDetails(_ context.Context, attemptID string, details []AnswerDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[attemptID]; !ok {
		return fmt.Errorf("%w: %s", ErrAttemptNotFound, attemptID)
	}
	m.details[attemptID] = append([]AnswerDetail(nil), details...)
	return nil
}

func (m *memoryStore) GetAnswerDetails(_ context.Context, attemptID string) ([]AnswerDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.attempts[attemptID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, attemptID)
	}
	return append([]AnswerDetail(nil), m.details[attemptID]...), nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return cloneAttempt(a), nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0)
	for _, a := range m.attempts {
		if opts.TestID != "" && a.TestID != opts.TestID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.SessionID != "" && a.SessionID != opts.SessionID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, cloneAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, opts.Offset, clampLimit(opts.Limit)), nil
}

func page[T any](s []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s) {
		return []T{}
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end]
}

func cloneAttempt(a Attempt) Attempt {
	if a.Answers != nil {
		ans := make(map[string]any, len(a.Answers))
		for k, v := range a.Answers {
			ans[k] = v
		}
		a.Answers = ans
	}
	if a.FactorScores != nil {
		fs := make(map[string]int, len(a.FactorScores))
		for k, v := range a.FactorScores {
			fs[k] = v
		}
		a.FactorScores = fs
	}
	if a.Interpretation != nil {
		in := make(map[string]scoring.Interpretation, len(a.Interpretation))
		for k, v := range a.Interpretation {
			in[k] = v
		}
		a.Interpretation = in
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	if a.Snapshot != nil {
		d := cloneDefinition(*a.Snapshot)
		a.Snapshot = &d
	}
	return a
}

func cloneDefinition(d TestDefinition) TestDefinition {
	qs := make([]Question, len(d.Questions))
	for i, q := range d.Questions {
		q.Options = append([]AnswerOption(nil), q.Options...)
		qs[i] = q
	}
	d.Questions = qs
	d.Factors = append([]PersonalityFactor(nil), d.Factors...)
	return d
}
