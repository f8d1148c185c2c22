package library

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

func TestPromptAuthorizerStatusReflectsStore(t *testing.T) {
	store := newTestStore(t)
	auth := NewPromptAuthorizer(store)

	status, err := auth.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != AuthNotDetermined {
		t.Errorf("Status() = %v, want AuthNotDetermined", status)
	}

	if err := store.SetAuthorizationStatus(context.Background(), AuthAuthorized); err != nil {
		t.Fatal(err)
	}
	status, err = auth.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != AuthAuthorized {
		t.Errorf("Status() = %v, want AuthAuthorized", status)
	}
}

func TestPromptAuthorizerReadAnswerCanceled(t *testing.T) {
	store := newTestStore(t)

	// Nothing is ever written to the pipe; only cancellation can end the
	// read.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	auth := &PromptAuthorizer{store: store, in: r, out: io.Discard}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := auth.readAnswer(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("readAnswer() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("readAnswer() did not return after cancellation")
	}
}

func TestPromptAuthorizerDeniesWithoutTerminal(t *testing.T) {
	store := newTestStore(t)

	// A pipe is not a terminal, so the request must resolve to denied
	// without blocking on input.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	auth := &PromptAuthorizer{store: store, in: r, out: io.Discard}

	status, err := auth.Request(context.Background())
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if status != AuthDenied {
		t.Errorf("Request() = %v, want AuthDenied", status)
	}

	// The denial is persisted.
	persisted, err := store.AuthorizationStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if persisted != AuthDenied {
		t.Errorf("persisted status = %v, want AuthDenied", persisted)
	}
}
