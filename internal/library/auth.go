package library

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"media-export/internal/logging"
)

// PromptAuthorizer implements Authorizer against a SQLite catalog. The
// decision is persisted in the catalog's settings, so the user is asked at
// most once. When the process has no controlling terminal, an undetermined
// request resolves to denied rather than hanging.
type PromptAuthorizer struct {
	store *SQLiteStore
	in    *os.File
	out   io.Writer
}

// NewPromptAuthorizer creates an authorizer that prompts on stdin/stdout.
func NewPromptAuthorizer(store *SQLiteStore) *PromptAuthorizer {
	return &PromptAuthorizer{
		store: store,
		in:    os.Stdin,
		out:   os.Stdout,
	}
}

// Status returns the persisted authorization decision.
func (a *PromptAuthorizer) Status(ctx context.Context) (AuthStatus, error) {
	return a.store.AuthorizationStatus(ctx)
}

// Request asks the user for library access on the terminal and persists the
// answer. Non-interactive processes are denied.
func (a *PromptAuthorizer) Request(ctx context.Context) (AuthStatus, error) {
	if !term.IsTerminal(int(a.in.Fd())) {
		logging.Warn("No terminal available for authorization prompt, denying access")
		if err := a.store.SetAuthorizationStatus(ctx, AuthDenied); err != nil {
			return AuthDenied, err
		}
		return AuthDenied, nil
	}

	fmt.Fprint(a.out, "Allow access to the media library? [y/N]: ")

	answer, err := a.readAnswer(ctx)
	if err != nil {
		return AuthNotDetermined, err
	}

	status := AuthDenied
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		status = AuthAuthorized
	}

	if err := a.store.SetAuthorizationStatus(ctx, status); err != nil {
		return status, err
	}

	logging.Info("Library access %s", status)
	return status, nil
}

// readAnswer reads one line of input, honoring ctx. Cancellation sets a read
// deadline on the input to unblock the pending read so the reader goroutine
// exits; fds without deadline support leave the goroutine blocked until the
// process exits, which is acceptable for a one-shot prompt.
func (a *PromptAuthorizer) readAnswer(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() {
		if err := a.in.SetReadDeadline(time.Now()); err != nil {
			logging.Debug("input does not support read deadlines: %v", err)
		}
	})
	defer stop()

	answerCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(a.in)
		line, err := reader.ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		answerCh <- line
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errCh:
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to read authorization answer: %w", err)
	case answer := <-answerCh:
		return answer, nil
	}
}
