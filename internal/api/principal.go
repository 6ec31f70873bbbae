package api

import (
	"fmt"
	"net/http"
	"strings"

	"courtbook/internal/domain"
	"courtbook/internal/models"
)

const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"
)

var errMissingPrincipal = fmt.Errorf("%w: %s header is required", domain.ErrValidation, headerUserID)

// principalFrom reads the caller identity forwarded by the authenticating
// gateway. The role defaults to client.
func principalFrom(r *http.Request) (models.Principal, error) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return models.Principal{}, errMissingPrincipal
	}
	role := models.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(headerRole))))
	if role == "" {
		role = models.RoleClient
	}
	if !role.Valid() {
		return models.Principal{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	return models.Principal{UserID: userID, Role: role}, nil
}
