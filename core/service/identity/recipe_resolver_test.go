package identity

import (
	"context"
	"sync"
	"testing"

	"recipe_server/core/domain"
	"recipe_server/internal/memstore"
	"recipe_server/pkg/apperr"
)

func newTestResolver() (*ResolverService, *memstore.AccountStore, *memstore.ProfileStore) {
	accounts := memstore.NewAccountStore()
	profiles := memstore.NewProfileStore()
	return NewResolverService(accounts, profiles, 20), accounts, profiles
}

func TestResolveCreatesAccountOnFirstContact(t *testing.T) {
	svc, _, profiles := newTestResolver()

	claims := &domain.IdentityClaims{
		SubjectID:   "sub-1",
		Email:       "Jamie.Oliver@example.com",
		DisplayName: "Jamie Oliver",
		AvatarURL:   "https://img.example.com/jamie.png",
	}

	acc, created, err := svc.Resolve(context.Background(), claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created=true on first contact")
	}
	if acc.Email != "jamie.oliver@example.com" {
		t.Errorf("expected lowercased email, got %s", acc.Email)
	}
	if acc.Handle != "jamieoliver" {
		t.Errorf("expected handle 'jamieoliver', got %s", acc.Handle)
	}
	if acc.Role != domain.RoleUser {
		t.Errorf("expected role %s, got %s", domain.RoleUser, acc.Role)
	}
	if profiles.InitCalls != 1 {
		t.Errorf("expected 1 profile init, got %d", profiles.InitCalls)
	}

	social, err := profiles.Social(context.Background(), acc.ID)
	if err != nil || social == nil {
		t.Fatalf("expected social profile after init, got %v, %v", social, err)
	}
	if social.FollowerCount != 0 || len(social.Followers) != 0 {
		t.Errorf("expected empty social profile, got %+v", social)
	}
}

func TestResolveReturnsExistingAccount(t *testing.T) {
	svc, _, profiles := newTestResolver()
	claims := &domain.IdentityClaims{Email: "cook@example.com", DisplayName: "Cook"}

	first, created, err := svc.Resolve(context.Background(), claims)
	if err != nil || !created {
		t.Fatalf("first resolve failed: created=%v err=%v", created, err)
	}

	second, created, err := svc.Resolve(context.Background(), claims)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if created {
		t.Error("expected created=false on repeat resolve")
	}
	if second.ID != first.ID {
		t.Errorf("expected same account id, got %s and %s", first.ID.Hex(), second.ID.Hex())
	}
	if profiles.InitCalls != 1 {
		t.Errorf("expected init to run once, got %d", profiles.InitCalls)
	}
}

func TestResolveConcurrentFirstContact(t *testing.T) {
	svc, accounts, _ := newTestResolver()
	claims := &domain.IdentityClaims{Email: "race@example.com"}

	const n = 16
	results := make([]*domain.Account, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = svc.Resolve(context.Background(), claims)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("resolve %d failed: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID {
			t.Errorf("resolve %d got a different account id", i)
		}
	}

	count, _ := accounts.CountAll(context.Background())
	if count != 1 {
		t.Errorf("expected exactly 1 account, got %d", count)
	}
}

func TestResolveHandleCollisionAppendsSuffix(t *testing.T) {
	svc, _, _ := newTestResolver()

	first, _, err := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: "chef@one.com"})
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if first.Handle != "chef" {
		t.Fatalf("expected handle 'chef', got %s", first.Handle)
	}

	second, _, err := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: "chef@two.com"})
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if second.Handle != "chef1" {
		t.Errorf("expected suffixed handle 'chef1', got %s", second.Handle)
	}
}

func TestResolveHandleExhaustion(t *testing.T) {
	accounts := memstore.NewAccountStore()
	profiles := memstore.NewProfileStore()
	svc := NewResolverService(accounts, profiles, 2)

	for _, email := range []string{"chef@a.com", "chef@b.com", "chef@c.com"} {
		if _, _, err := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: email}); err != nil {
			t.Fatalf("seed resolve for %s failed: %v", email, err)
		}
	}

	_, _, err := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: "chef@d.com"})
	if err == nil {
		t.Fatal("expected error after handle exhaustion")
	}
	if !apperr.IsCode(err, apperr.CodeResourceExhausted) {
		t.Errorf("expected code %s, got %v", apperr.CodeResourceExhausted, err)
	}
}

func TestResolveRejectsMissingEmail(t *testing.T) {
	svc, _, _ := newTestResolver()

	for _, claims := range []*domain.IdentityClaims{nil, {DisplayName: "no email"}} {
		_, _, err := svc.Resolve(context.Background(), claims)
		if !apperr.IsCode(err, apperr.CodeInvalidIdentity) {
			t.Errorf("expected code %s, got %v", apperr.CodeInvalidIdentity, err)
		}
	}
}

func TestUpdateAccountWhitelistsFields(t *testing.T) {
	svc, _, _ := newTestResolver()
	acc, _, err := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: "edit@example.com"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	updated, err := svc.UpdateAccount(context.Background(), acc.ID, map[string]any{
		"name":   "New Name",
		"bio":    "I cook",
		"handle": "New Handle!",
		"role":   "admin",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("expected name updated, got %s", updated.Name)
	}
	if updated.Handle != "newhandle" {
		t.Errorf("expected normalized handle 'newhandle', got %s", updated.Handle)
	}
	if updated.Role != domain.RoleUser {
		t.Errorf("role must not be updatable, got %s", updated.Role)
	}
}

func TestUpdateAccountHandleConflict(t *testing.T) {
	svc, _, _ := newTestResolver()
	a, _, _ := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: "alpha@example.com"})
	b, _, _ := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: "beta@example.com"})

	_, err := svc.UpdateAccount(context.Background(), b.ID, map[string]any{"handle": a.Handle})
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("expected code %s, got %v", apperr.CodeConflict, err)
	}
}

func TestUpdateAccountNoFields(t *testing.T) {
	svc, _, _ := newTestResolver()
	acc, _, _ := svc.Resolve(context.Background(), &domain.IdentityClaims{Email: "empty@example.com"})

	_, err := svc.UpdateAccount(context.Background(), acc.ID, map[string]any{"role": "admin"})
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Errorf("expected code %s, got %v", apperr.CodeBadRequest, err)
	}
}

func TestHandleFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"simple@example.com", "simple"},
		{"first.last@example.com", "firstlast"},
		{"user+tag42@example.com", "usertag42"},
		{"UPPER@example.com", "upper"},
	}
	for _, tt := range tests {
		if got := handleFromEmail(tt.email); got != tt.want {
			t.Errorf("handleFromEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestHandleFromEmailDegenerateLocalPart(t *testing.T) {
	got := handleFromEmail("____@example.com")
	if len(got) < 5 || got[:4] != "chef" {
		t.Errorf("expected chef<timestamp> fallback, got %q", got)
	}
}
