package export

import (
	"context"

	"media-export/internal/library"
	"media-export/internal/logging"
)

// PermissionGate collapses the library's authorization state to a single
// grant decision. A run does not proceed without it.
type PermissionGate struct {
	auth library.Authorizer
}

// NewPermissionGate creates a gate over the given authorizer.
func NewPermissionGate(auth library.Authorizer) *PermissionGate {
	return &PermissionGate{auth: auth}
}

// CheckAccess blocks until the authorization decision is known. An
// undetermined state triggers exactly one request; denied and restricted
// both collapse to false. There are no retries.
func (g *PermissionGate) CheckAccess(ctx context.Context) (bool, error) {
	status, err := g.auth.Status(ctx)
	if err != nil {
		return false, err
	}

	if status == library.AuthNotDetermined {
		logging.Debug("Authorization not determined, requesting access")
		status, err = g.auth.Request(ctx)
		if err != nil {
			return false, err
		}
	}

	return status == library.AuthAuthorized, nil
}
