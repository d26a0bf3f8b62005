package k8s

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestExecuteWithRetryRecoversFromTransientErrors(t *testing.T) {
	attempts := 0
	cfg := retryConfig{maxAttempts: 3, sleep: noSleep}

	err := executeWithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("dial tcp: connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteWithRetryFailsFastOnAuthError(t *testing.T) {
	attempts := 0
	cfg := retryConfig{maxAttempts: 3, sleep: noSleep}

	err := executeWithRetry(context.Background(), cfg, func() error {
		attempts++
		return apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "web-1", errors.New("rbac denied"))
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected no retries for auth errors, got %d attempts", attempts)
	}
}

func TestExecuteWithRetryStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	cfg := retryConfig{maxAttempts: 2, sleep: noSleep}

	sentinel := fmt.Errorf("i/o timeout")
	err := executeWithRetry(context.Background(), cfg, func() error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected final transient error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestExecuteWithRetryDoesNotRetryNonTransient(t *testing.T) {
	attempts := 0
	cfg := retryConfig{maxAttempts: 3, sleep: noSleep}

	err := executeWithRetry(context.Background(), cfg, func() error {
		attempts++
		return fmt.Errorf("field selector is malformed")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt for non-transient error, got %d", attempts)
	}
}

func TestExecuteWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := retryConfig{maxAttempts: 3, sleep: noSleep}
	err := executeWithRetry(ctx, cfg, func() error {
		t.Fatalf("fn should not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsAuthError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unauthorized", err: apierrors.NewUnauthorized("bad token"), want: true},
		{name: "wrapped_unauthorized", err: fmt.Errorf("listing: %w", apierrors.NewUnauthorized("bad token")), want: true},
		{name: "transient", err: fmt.Errorf("connection refused"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAuthError(tc.err); got != tc.want {
				t.Fatalf("IsAuthError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
