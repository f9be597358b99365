package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTooMany = errors.New("429 too many requests")

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

// rateLimitedThen returns an op that is rate limited n times before succeeding.
func rateLimitedThen(n, retryAfter int, calls *int) func(context.Context) Result[string] {
	return func(context.Context) Result[string] {
		*calls++
		if *calls <= n {
			return RateLimited[string](retryAfter, errTooMany)
		}
		return Success("snapshot")
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	exec := New(WithSleeper(sleeper.sleep))
	calls := 0

	got, err := Do(context.Background(), exec, rateLimitedThen(0, 0, &calls))
	require.NoError(t, err)
	assert.Equal(t, "snapshot", got)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
}

func TestDo_WaitsRetryAfterPlusOne(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter int
		want       time.Duration
	}{
		{"zero hint", 0, time.Second},
		{"three seconds", 3, 4 * time.Second},
		{"negative hint clamps", -5, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			exec := New(WithSleeper(sleeper.sleep))
			calls := 0

			_, err := Do(context.Background(), exec, rateLimitedThen(2, tt.retryAfter, &calls))
			require.NoError(t, err)
			assert.Equal(t, 3, calls)
			assert.Equal(t, []time.Duration{tt.want, tt.want}, sleeper.waits)
		})
	}
}

func TestDo_RetryCeiling(t *testing.T) {
	tests := []struct {
		name        string
		rateLimited int
		wantErr     bool
		wantCalls   int
	}{
		{"twenty responses recover", 20, false, 21},
		{"twenty one responses recover", 21, false, 22},
		{"twenty two responses give up", 22, true, 22},
		{"never recovers", 1000, true, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			exec := New(WithSleeper(sleeper.sleep))
			calls := 0

			_, err := Do(context.Background(), exec, rateLimitedThen(tt.rateLimited, 1, &calls))
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRetriesExhausted)
				assert.ErrorIs(t, err, errTooMany)
				assert.Len(t, sleeper.waits, DefaultMaxRetries+1)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDo_FatalIsNotRetried(t *testing.T) {
	sleeper := &recordingSleeper{}
	exec := New(WithSleeper(sleeper.sleep))
	boom := errors.New("boom")
	calls := 0

	_, err := Do(context.Background(), exec, func(context.Context) Result[int] {
		calls++
		return Fatal[int](boom)
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
}

func TestDo_CustomCeiling(t *testing.T) {
	sleeper := &recordingSleeper{}
	exec := New(WithSleeper(sleeper.sleep), WithMaxRetries(2))
	calls := 0

	_, err := Do(context.Background(), exec, rateLimitedThen(100, 0, &calls))
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 2, exec.MaxRetries())
}

func TestDo_ObserverSeesEachWait(t *testing.T) {
	var attempts []int
	exec := New(
		WithSleeper((&recordingSleeper{}).sleep),
		WithObserver(func(attempt int, _ time.Duration) { attempts = append(attempts, attempt) }),
	)
	calls := 0

	_, err := Do(context.Background(), exec, rateLimitedThen(3, 0, &calls))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, err := Do(ctx, New(), rateLimitedThen(1, 30, &calls))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSleep_WaitsAtLeastDuration(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestClassify(t *testing.T) {
	limited := func(err error) (int, bool) {
		if errors.Is(err, errTooMany) {
			return 7, true
		}
		return 0, false
	}

	assert.Equal(t, Success(1), Classify(1, nil, limited))

	res := Classify(0, errTooMany, limited)
	assert.Equal(t, StatusRateLimited, res.Status)
	assert.Equal(t, 7, res.RetryAfter)

	other := errors.New("other")
	res = Classify(0, other, limited)
	assert.Equal(t, StatusFatal, res.Status)
	assert.ErrorIs(t, res.Err, other)
}
