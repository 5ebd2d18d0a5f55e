package psytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-psych/internal/db"
)

// faultyStore fails selected writes and passes everything else through.
type faultyStore struct {
	Store
	failSave    error
	failDetails error
	failStats   error
}

func (f *faultyStore) SaveAttempt(ctx context.Context, a Attempt, opts SaveOptions) (string, error) {
	if f.failSave != nil {
		return "", f.failSave
	}
	return f.Store.SaveAttempt(ctx, a, opts)
}

func (f *faultyStore) SaveAnswerDetails(ctx context.Context, attemptID string, details []AnswerDetail) error {
	if f.failDetails != nil {
		return f.failDetails
	}
	return f.Store.SaveAnswerDetails(ctx, attemptID, details)
}

func (f *faultyStore) IncrementTestStats(ctx context.Context, testID string, percentage float64) error {
	if f.failStats != nil {
		return f.failStats
	}
	return f.Store.IncrementTestStats(ctx, testID, percentage)
}

func newFaultyService(t *testing.T, f *faultyStore) *Service {
	t.Helper()
	f.Store = NewMemoryStore()
	svc := NewService(f, WithIDGenerator(sequentialIDs("f")))
	_, err := svc.PutTest(context.Background(), mixedTest())
	require.NoError(t, err)
	return svc
}

func TestService_SecondaryWriteFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	f := &faultyStore{failDetails: boom, failStats: boom}
	svc := newFaultyService(t, f)

	a, err := svc.SubmitAttempt(ctx, SubmitRequest{TestID: "t-mixed", UserID: "u1",
		Answers: map[string]any{"q1": "B", "r1": float64(4)}})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, 100.0, a.Percentage)

	stored, err := svc.GetAttempt(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 11.0, stored.Score)

	details, err := svc.GetAnswerDetails(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, details)

	stats, err := svc.GetTestStats(ctx, "t-mixed")
	require.NoError(t, err)
	assert.Zero(t, stats.AttemptsCount)
}

func TestService_CoreSaveFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	f := &faultyStore{failSave: errors.New("connection reset")}
	svc := newFaultyService(t, f)

	_, err := svc.SubmitAttempt(ctx, SubmitRequest{TestID: "t-mixed", UserID: "u1",
		Answers: map[string]any{"q1": "B"}})
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")

	list, err := svc.ListAttempts(ctx, AttemptListOpts{TestID: "t-mixed"})
	require.NoError(t, err)
	assert.Empty(t, list)

	stats, err := svc.GetTestStats(ctx, "t-mixed")
	require.NoError(t, err)
	assert.Zero(t, stats.AttemptsCount)
}

func TestService_TimeSpentOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.SubmitAttempt(ctx, SubmitRequest{TestID: "t-mixed", UserID: "u1",
		Answers: map[string]any{"q1": "B"}, TimeSpentSeconds: 1 << 62})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "lte", ve.Fields["time_spent_seconds"])

	a, err := svc.SubmitAttempt(ctx, SubmitRequest{TestID: "t-mixed", UserID: "u1",
		Answers: map[string]any{"q1": "B"}, TimeSpentSeconds: MaxTimeSpentSeconds})
	require.NoError(t, err)
	assert.True(t, a.StartedAt.Before(*a.CompletedAt))

	open, err := svc.StartAttempt(ctx, "t-mixed", "u1", "")
	require.NoError(t, err)
	_, err = svc.CompleteAttempt(ctx, open.ID, MaxTimeSpentSeconds+1)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestService_ConcurrentSubmissionsKeepStats(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			return NewSQLStore(openSQLite(t, "concurrent_stats"), db.DriverSQLite)
		},
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(mk(t))
			_, err := svc.PutTest(ctx, mixedTest())
			require.NoError(t, err)

			const n = 20
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				answers := map[string]any{"q1": "B", "r1": float64(3)}
				if i%2 == 1 {
					answers = map[string]any{"q1": "A"}
				}
				wg.Add(1)
				go func(user string, answers map[string]any) {
					defer wg.Done()
					_, err := svc.SubmitAttempt(ctx, SubmitRequest{TestID: "t-mixed", UserID: user, Answers: answers})
					errs <- err
				}(fmt.Sprintf("u%d", i), answers)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			stats, err := svc.GetTestStats(ctx, "t-mixed")
			require.NoError(t, err)
			assert.Equal(t, int64(n), stats.AttemptsCount)
			assert.InDelta(t, 50.0, stats.AvgPercentage, 1e-9)

			list, err := svc.ListAttempts(ctx, AttemptListOpts{TestID: "t-mixed", Limit: 100})
			require.NoError(t, err)
			assert.Len(t, list, n)
		})
	}
}
