// Package identity implements first-contact account resolution.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/apperr"
	"recipe_server/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResolverService turns verified identity claims into a stored
// account. Resolution is upsert-shaped: concurrent first requests for
// the same email converge on one account, and exactly one of them
// performs profile initialization.
type ResolverService struct {
	accountRepo out.AccountRepository
	profileRepo out.ProfileRepository
	maxRetries  int
}

// NewResolverService creates a new identity resolver.
func NewResolverService(accountRepo out.AccountRepository, profileRepo out.ProfileRepository, maxRetries int) *ResolverService {
	if maxRetries <= 0 {
		maxRetries = 20
	}
	return &ResolverService{
		accountRepo: accountRepo,
		profileRepo: profileRepo,
		maxRetries:  maxRetries,
	}
}

// Resolve returns the account for the given claims, creating it on
// first contact. The handle is derived from the email local part; on
// collision a numeric suffix is appended and the insert retried
// store-side rather than check-then-act.
func (s *ResolverService) Resolve(ctx context.Context, claims *domain.IdentityClaims) (*domain.Account, bool, error) {
	if claims == nil || claims.Email == "" {
		return nil, false, apperr.InvalidIdentity("email claim is required")
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	base := handleFromEmail(email)

	var (
		account *domain.Account
		created bool
	)

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s%d", base, attempt)
		}

		acc := &domain.Account{
			Email:     email,
			Handle:    candidate,
			Name:      claims.DisplayName,
			AvatarURL: claims.AvatarURL,
			SubjectID: claims.SubjectID,
		}

		stored, wasCreated, err := s.accountRepo.UpsertByEmail(ctx, acc)
		if err != nil {
			if errors.Is(err, out.ErrHandleTaken) {
				continue
			}
			return nil, false, apperr.StoreUnavailable("resolve account", err)
		}
		account, created = stored, wasCreated
		break
	}

	if account == nil {
		return nil, false, apperr.ResourceExhausted(
			fmt.Sprintf("could not allocate a handle for %q after %d attempts", base, s.maxRetries+1))
	}

	if created {
		if err := s.profileRepo.Init(ctx, account.ID); err != nil {
			// The account exists; profile init is retried on a later
			// resolve because Init skips documents already present.
			logger.WithContext(ctx).WithField("account_id", account.ID.Hex()).
				WithError(err).Error("profile initialization failed")
			return nil, false, apperr.StoreUnavailable("initialize profiles", err)
		}
		logger.WithFields(map[string]any{
			"account_id": account.ID.Hex(),
			"handle":     account.Handle,
		}).Info("account created")
	}

	return account, created, nil
}

// GetAccount returns the stored account by id.
func (s *ResolverService) GetAccount(ctx context.Context, id primitive.ObjectID) (*domain.Account, error) {
	acc, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.StoreUnavailable("get account", err)
	}
	if acc == nil {
		return nil, apperr.NotFound("account")
	}
	return acc, nil
}

// UpdateAccount applies a partial profile update to the caller's own
// account. Only whitelisted fields pass through.
func (s *ResolverService) UpdateAccount(ctx context.Context, id primitive.ObjectID, updates map[string]any) (*domain.Account, error) {
	fields := map[string]any{}
	if v, ok := updates["name"].(string); ok && v != "" {
		fields["name"] = v
	}
	if v, ok := updates["bio"].(string); ok {
		fields["bio"] = v
	}
	if v, ok := updates["avatar_url"].(string); ok {
		fields["avatar_url"] = v
	}
	if v, ok := updates["handle"].(string); ok && v != "" {
		normalized := normalizeHandle(v)
		if normalized == "" {
			return nil, apperr.InvalidInput("handle", "must contain letters or digits")
		}
		fields["handle"] = normalized
	}
	if len(fields) == 0 {
		return nil, apperr.BadRequest("no updatable fields supplied")
	}

	if err := s.accountRepo.UpdateFields(ctx, id, fields); err != nil {
		if errors.Is(err, out.ErrHandleTaken) {
			return nil, apperr.Conflict("handle already taken")
		}
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.NotFound("account")
		}
		return nil, apperr.StoreUnavailable("update account", err)
	}
	return s.GetAccount(ctx, id)
}

// handleFromEmail derives the base handle from the email local part,
// keeping only lowercase letters and digits.
func handleFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	if h := normalizeHandle(local); h != "" {
		return h
	}
	// Degenerate local part, fall back to a timestamped handle.
	return fmt.Sprintf("chef%d", time.Now().Unix())
}

func normalizeHandle(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
