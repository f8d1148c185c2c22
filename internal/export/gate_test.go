package export

import (
	"context"
	"errors"
	"testing"

	"media-export/internal/library"
)

func TestPermissionGateCheckAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        library.AuthStatus
		requestResult library.AuthStatus
		wantGranted   bool
		wantRequests  int
	}{
		{"already authorized", library.AuthAuthorized, library.AuthNotDetermined, true, 0},
		{"already denied", library.AuthDenied, library.AuthNotDetermined, false, 0},
		{"restricted", library.AuthRestricted, library.AuthNotDetermined, false, 0},
		{"undetermined then granted", library.AuthNotDetermined, library.AuthAuthorized, true, 1},
		{"undetermined then denied", library.AuthNotDetermined, library.AuthDenied, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			auth := &fakeAuthorizer{status: tt.status, requestResult: tt.requestResult}
			g := NewPermissionGate(auth)

			granted, err := g.CheckAccess(context.Background())
			if err != nil {
				t.Fatalf("CheckAccess() error = %v", err)
			}
			if granted != tt.wantGranted {
				t.Errorf("granted = %v, want %v", granted, tt.wantGranted)
			}
			if got := auth.requestCount(); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
		})
	}
}

func TestPermissionGatePropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("status backend down")
	auth := &fakeAuthorizer{statusErr: boom}
	g := NewPermissionGate(auth)

	if _, err := g.CheckAccess(context.Background()); !errors.Is(err, boom) {
		t.Errorf("CheckAccess() error = %v, want %v", err, boom)
	}

	auth = &fakeAuthorizer{status: library.AuthNotDetermined, requestErr: boom}
	g = NewPermissionGate(auth)
	if _, err := g.CheckAccess(context.Background()); !errors.Is(err, boom) {
		t.Errorf("CheckAccess() request error = %v, want %v", err, boom)
	}
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"valid", Options{IncludeImages: true, ChunkSize: 10}, nil},
		{"audio only", Options{IncludeAudio: true, ChunkSize: 1}, nil},
		{"no kinds", Options{ChunkSize: 10}, ErrNoMediaTypesSelected},
		{"zero chunk size", Options{IncludeVideos: true}, ErrInvalidChunkSize},
		{"negative chunk size", Options{IncludeVideos: true, ChunkSize: -5}, ErrInvalidChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.opts.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
