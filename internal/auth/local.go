package auth

import (
	"context"
	"strings"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/franckalain/riceguard/internal/api"
	"github.com/franckalain/riceguard/internal/models"
)

// LocalAccounts signs users in on the device only. The legacy backend has
// no account endpoints, so a validated form is enough to open a session.
type LocalAccounts struct{}

// Register accepts any validated account
func (LocalAccounts) Register(_ context.Context, name, email, _ string) (*models.User, error) {
	return &models.User{ID: uuid.NewString(), Name: name, Email: email}, nil
}

// Login issues a device-local token
func (LocalAccounts) Login(_ context.Context, email, _ string) (*models.AuthResponse, error) {
	email = strings.TrimSpace(email)
	log.WithField("email", email).Debug("auth.local.login")
	return &models.AuthResponse{
		AccessToken: "local-" + uuid.NewString(),
		User:        models.User{ID: email, Name: DisplayName(email), Email: email},
	}, nil
}

// NewAuthenticator picks the account backend for the configured contract
func NewAuthenticator(contract string, client *api.Client) Authenticator {
	if contract == api.ContractLegacy {
		return LocalAccounts{}
	}
	return client
}
