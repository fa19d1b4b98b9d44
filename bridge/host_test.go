package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaguanLabs/wordpop"
)

func TestLocalHost_StartsOnce(t *testing.T) {
	var starts int32
	worker := NewWorker(echoTranslator(), newSettings(), newRecordTabs())
	defer worker.Close()

	host := NewLocalHost(func(ctx context.Context) (Handler, error) {
		atomic.AddInt32(&starts, 1)
		return worker, nil
	}, wordpop.DefaultRetryConfig())

	if host.Running() {
		t.Fatal("Worker should start lazily")
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := host.Ensure(context.Background()); err != nil {
				t.Errorf("Ensure failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&starts); got != 1 {
		t.Errorf("Expected one start, got %d", got)
	}
	if !host.Running() {
		t.Error("Expected worker to be running")
	}
}

func TestLocalHost_RetriesStart(t *testing.T) {
	attempts := 0
	host := NewLocalHost(func(ctx context.Context) (Handler, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("document not ready")
		}
		return HandlerFunc(func(ctx context.Context, sender Sender, env Envelope) (any, error) {
			return nil, nil
		}), nil
	}, wordpop.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})

	if _, err := host.Ensure(context.Background()); err != nil {
		t.Fatalf("Expected start to succeed after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestLocalHost_GivesUp(t *testing.T) {
	host := NewLocalHost(func(ctx context.Context) (Handler, error) {
		return nil, errors.New("no")
	}, wordpop.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	_, err := host.Ensure(context.Background())

	var chErr *wordpop.ChannelError
	if !errors.As(err, &chErr) || chErr.Op != "ensure" {
		t.Errorf("Expected ensure ChannelError, got %v", err)
	}
	if host.Running() {
		t.Error("Failed start must not mark the worker running")
	}
}
