// Package admin implements the admin authorization gate.
package admin

import (
	"context"
	"strings"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/apperr"
	"recipe_server/pkg/logger"
)

// GateService decides whether a caller may use admin operations.
// Checks run cheapest first and short-circuit on the first grant:
//
//  1. environment override (debug or maintenance mode)
//  2. admin claim on the verified identity
//  3. configured admin email allow-list
//  4. elevated role on the stored account, read fresh so a role
//     change takes effect without re-authentication
type GateService struct {
	accountRepo out.AccountRepository
	adminEmails map[string]struct{}
	debug       bool
	maintenance bool
}

// NewGateService creates a new admin gate.
func NewGateService(accountRepo out.AccountRepository, adminEmails []string, debug, maintenance bool) *GateService {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		allow[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &GateService{
		accountRepo: accountRepo,
		adminEmails: allow,
		debug:       debug,
		maintenance: maintenance,
	}
}

// IsAdmin reports whether the caller passes the gate. Store errors on
// the final check are treated as denial, never as grant.
func (s *GateService) IsAdmin(ctx context.Context, claims *domain.IdentityClaims, account *domain.Account) bool {
	if s.debug || s.maintenance {
		return true
	}
	if claims != nil && claims.Admin {
		return true
	}

	email := ""
	if claims != nil && claims.Email != "" {
		email = claims.Email
	} else if account != nil {
		email = account.Email
	}
	if email != "" {
		if _, ok := s.adminEmails[strings.ToLower(email)]; ok {
			return true
		}
	}

	if account == nil {
		return false
	}
	fresh, err := s.accountRepo.GetByID(ctx, account.ID)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("admin role lookup failed, denying")
		return false
	}
	return fresh.IsAdmin()
}

// Require returns nil when the caller passes the gate and a
// PermissionDenied error otherwise.
func (s *GateService) Require(ctx context.Context, claims *domain.IdentityClaims, account *domain.Account) error {
	if s.IsAdmin(ctx, claims, account) {
		return nil
	}
	return apperr.PermissionDenied("admin access required")
}
