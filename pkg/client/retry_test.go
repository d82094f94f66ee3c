package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleeper) total() time.Duration {
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 6 {
		t.Errorf("MaxAttempts = %d, want 6", config.MaxAttempts)
	}
	if config.BaseDelay != 1*time.Second {
		t.Errorf("BaseDelay = %v, want 1s", config.BaseDelay)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	config := RetryConfig{BaseDelay: 500 * time.Millisecond}

	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}
	for attempt, w := range want {
		if got := config.Backoff(attempt); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, w)
		}
	}
	if got := config.Backoff(-1); got != 500*time.Millisecond {
		t.Errorf("Backoff(-1) = %v, want base delay", got)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	sleeper := &recordingSleeper{}
	callCount := 0

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper.sleep, "u", zerolog.Nop(),
		func(int) (ErrorClass, error) {
			callCount++
			return "", nil
		})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected no sleep, got %v", sleeper.delays)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	sleeper := &recordingSleeper{}
	callCount := 0

	err := retryWithBackoff(context.Background(), RetryConfig{MaxAttempts: 6, BaseDelay: time.Second}, sleeper.sleep, "u", zerolog.Nop(),
		func(int) (ErrorClass, error) {
			callCount++
			if callCount < 3 {
				return ErrorClassServer, errors.New("temporary error")
			}
			return "", nil
		})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(sleeper.delays) != len(want) || sleeper.delays[0] != want[0] || sleeper.delays[1] != want[1] {
		t.Errorf("Delays = %v, want %v", sleeper.delays, want)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	sleeper := &recordingSleeper{}
	callCount := 0
	testErr := errors.New("persistent error")

	err := retryWithBackoff(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}, sleeper.sleep, "http://api/x", zerolog.Nop(),
		func(int) (ErrorClass, error) {
			callCount++
			return ErrorClassRateLimit, testErr
		})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected last error to be wrapped, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}

	// sleeps happen before retries only: base*2^0 + base*2^1. The wider
	// base*(2^0+2^1+2^2) bound is not reached since the final attempt is
	// never followed by a sleep.
	if len(sleeper.delays) != 2 {
		t.Fatalf("Expected 2 sleeps, got %v", sleeper.delays)
	}
	if sleeper.total() != 300*time.Millisecond {
		t.Errorf("Total sleep = %v, want 300ms", sleeper.total())
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected *ExhaustedError, got %T", err)
	}
	if exhausted.URL != "http://api/x" || exhausted.Attempts != 3 {
		t.Errorf("ExhaustedError = %+v", exhausted)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	sleeper := &recordingSleeper{}
	callCount := 0
	testErr := errors.New("client error")

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper.sleep, "u", zerolog.Nop(),
		func(int) (ErrorClass, error) {
			callCount++
			return ErrorClassClient, testErr
		})

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors")
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := &recordingSleeper{}
	callCount := 0

	err := retryWithBackoff(ctx, DefaultRetryConfig(), sleeper.sleep, "u", zerolog.Nop(),
		func(int) (ErrorClass, error) {
			callCount++
			cancel()
			return ErrorClassServer, errors.New("error")
		})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_AttemptIndex(t *testing.T) {
	var seen []int
	_ = retryWithBackoff(context.Background(), RetryConfig{MaxAttempts: 4}, (&recordingSleeper{}).sleep, "u", zerolog.Nop(),
		func(attempt int) (ErrorClass, error) {
			seen = append(seen, attempt)
			return ErrorClassNetwork, errors.New("timeout")
		})

	if len(seen) != 4 || seen[0] != 0 || seen[3] != 3 {
		t.Errorf("Attempt indexes = %v, want [0 1 2 3]", seen)
	}
}

func TestRetryWithBackoff_RealSleep(t *testing.T) {
	start := time.Now()
	_ = retryWithBackoff(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}, nil, "u", zerolog.Nop(),
		func(int) (ErrorClass, error) {
			return ErrorClassRateLimit, errors.New("429")
		})

	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Elapsed %v, want >= 30ms (10ms + 20ms)", elapsed)
	}
}
