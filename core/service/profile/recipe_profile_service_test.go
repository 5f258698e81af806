package profile

import (
	"context"
	"testing"
	"time"

	"recipe_server/core/domain"
	"recipe_server/internal/memstore"
	"recipe_server/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestService() (*Service, *memstore.AccountStore, *memstore.ProfileStore) {
	accounts := memstore.NewAccountStore()
	profiles := memstore.NewProfileStore()
	return NewService(accounts, profiles, nil, 0, 50), accounts, profiles
}

func seedAccount(accounts *memstore.AccountStore, profiles *memstore.ProfileStore, email string) primitive.ObjectID {
	id := accounts.Seed(domain.Account{Email: email, Role: domain.RoleUser})
	_ = profiles.Init(context.Background(), id)
	return id
}

func TestFollowUpdatesBothSides(t *testing.T) {
	svc, accounts, profiles := newTestService()
	follower := seedAccount(accounts, profiles, "follower@example.com")
	followee := seedAccount(accounts, profiles, "followee@example.com")

	if err := svc.Follow(context.Background(), follower, followee); err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	followeeSocial, _ := svc.Social(context.Background(), followee)
	if followeeSocial.FollowerCount != 1 || len(followeeSocial.Followers) != 1 {
		t.Errorf("expected 1 follower, got count=%d len=%d", followeeSocial.FollowerCount, len(followeeSocial.Followers))
	}
	followerSocial, _ := svc.Social(context.Background(), follower)
	if followerSocial.FollowingCount != 1 || len(followerSocial.Following) != 1 {
		t.Errorf("expected 1 following, got count=%d len=%d", followerSocial.FollowingCount, len(followerSocial.Following))
	}
}

func TestFollowIsIdempotent(t *testing.T) {
	svc, accounts, profiles := newTestService()
	follower := seedAccount(accounts, profiles, "follower@example.com")
	followee := seedAccount(accounts, profiles, "followee@example.com")

	for i := 0; i < 3; i++ {
		if err := svc.Follow(context.Background(), follower, followee); err != nil {
			t.Fatalf("follow %d failed: %v", i, err)
		}
	}

	social, _ := svc.Social(context.Background(), followee)
	if social.FollowerCount != 1 {
		t.Errorf("repeat follows must not inflate the counter, got %d", social.FollowerCount)
	}
}

func TestFollowSelfRejected(t *testing.T) {
	svc, accounts, profiles := newTestService()
	id := seedAccount(accounts, profiles, "solo@example.com")

	err := svc.Follow(context.Background(), id, id)
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Errorf("expected code %s, got %v", apperr.CodeBadRequest, err)
	}
}

func TestFollowUnknownFollowee(t *testing.T) {
	svc, accounts, profiles := newTestService()
	follower := seedAccount(accounts, profiles, "follower@example.com")

	err := svc.Follow(context.Background(), follower, primitive.NewObjectID())
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected code %s, got %v", apperr.CodeNotFound, err)
	}
}

func TestUnfollowReversesFollow(t *testing.T) {
	svc, accounts, profiles := newTestService()
	follower := seedAccount(accounts, profiles, "follower@example.com")
	followee := seedAccount(accounts, profiles, "followee@example.com")

	if err := svc.Follow(context.Background(), follower, followee); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if err := svc.Unfollow(context.Background(), follower, followee); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}

	social, _ := svc.Social(context.Background(), followee)
	if social.FollowerCount != 0 || len(social.Followers) != 0 {
		t.Errorf("expected empty follower set, got count=%d len=%d", social.FollowerCount, len(social.Followers))
	}

	// Unfollowing again stays a no-op.
	if err := svc.Unfollow(context.Background(), follower, followee); err != nil {
		t.Fatalf("repeat unfollow failed: %v", err)
	}
	social, _ = svc.Social(context.Background(), followee)
	if social.FollowerCount != 0 {
		t.Errorf("repeat unfollow must not go negative, got %d", social.FollowerCount)
	}
}

func TestFollowMilestoneNotification(t *testing.T) {
	svc, accounts, profiles := newTestService()
	followee := seedAccount(accounts, profiles, "star@example.com")

	for i := 0; i < 7; i++ {
		follower := seedAccount(accounts, profiles, "fan"+string(rune('a'+i))+"@example.com")
		if err := svc.Follow(context.Background(), follower, followee); err != nil {
			t.Fatalf("follow %d failed: %v", i, err)
		}
	}

	inbox, err := svc.Notifications(context.Background(), followee)
	if err != nil {
		t.Fatalf("notifications failed: %v", err)
	}
	if len(inbox.Notifications) != 1 {
		t.Fatalf("expected exactly 1 milestone at 5 followers, got %d", len(inbox.Notifications))
	}
	n := inbox.Notifications[0]
	if n.Type != domain.NotificationMilestone {
		t.Errorf("expected type %s, got %s", domain.NotificationMilestone, n.Type)
	}
	if n.Message != "You reached 5 followers!" {
		t.Errorf("unexpected milestone message: %s", n.Message)
	}
	if inbox.UnreadCount != 1 {
		t.Errorf("expected unread count 1, got %d", inbox.UnreadCount)
	}
}

func TestRepeatFollowDoesNotRepeatMilestone(t *testing.T) {
	svc, accounts, profiles := newTestService()
	followee := seedAccount(accounts, profiles, "star@example.com")

	var fans []primitive.ObjectID
	for i := 0; i < 5; i++ {
		fans = append(fans, seedAccount(accounts, profiles, "fan"+string(rune('a'+i))+"@example.com"))
	}
	for _, fan := range fans {
		if err := svc.Follow(context.Background(), fan, followee); err != nil {
			t.Fatalf("follow failed: %v", err)
		}
	}
	// The 5th fan following again leaves the count at 5 but must not
	// fire a second milestone.
	if err := svc.Follow(context.Background(), fans[4], followee); err != nil {
		t.Fatalf("repeat follow failed: %v", err)
	}

	inbox, _ := svc.Notifications(context.Background(), followee)
	if len(inbox.Notifications) != 1 {
		t.Errorf("expected 1 milestone, got %d", len(inbox.Notifications))
	}
}

func TestSocialCacheAside(t *testing.T) {
	accounts := memstore.NewAccountStore()
	profiles := memstore.NewProfileStore()
	cache := memstore.NewMemCache()
	svc := NewService(accounts, profiles, cache, time.Minute, 50)

	id := seedAccount(accounts, profiles, "cached@example.com")

	if _, err := svc.Social(context.Background(), id); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if cache.Misses != 1 {
		t.Errorf("expected 1 cache miss, got %d", cache.Misses)
	}
	if _, err := svc.Social(context.Background(), id); err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if cache.Hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", cache.Hits)
	}

	follower := seedAccount(accounts, profiles, "other@example.com")
	if err := svc.Follow(context.Background(), follower, id); err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	social, err := svc.Social(context.Background(), id)
	if err != nil {
		t.Fatalf("read after follow failed: %v", err)
	}
	if social.FollowerCount != 1 {
		t.Errorf("expected invalidated cache to expose new count 1, got %d", social.FollowerCount)
	}
}

func TestRecordViewDedupAndOrder(t *testing.T) {
	svc, accounts, profiles := newTestService()
	id := seedAccount(accounts, profiles, "viewer@example.com")

	dishA := primitive.NewObjectID()
	dishB := primitive.NewObjectID()

	steps := []struct {
		ref  primitive.ObjectID
		name string
	}{
		{dishA, "Pasta"},
		{dishB, "Stew"},
		{dishA, "Pasta"},
	}
	for _, st := range steps {
		if err := svc.RecordView(context.Background(), id, domain.ViewTypeDish, st.ref, st.name, ""); err != nil {
			t.Fatalf("record view failed: %v", err)
		}
	}

	activity, _ := svc.Activity(context.Background(), id)
	if len(activity.ViewHistory) != 2 {
		t.Fatalf("expected deduplicated history of 2, got %d", len(activity.ViewHistory))
	}
	if activity.ViewHistory[0].RefID != dishA {
		t.Errorf("expected re-viewed dish first, got %s", activity.ViewHistory[0].Name)
	}
	if activity.ViewHistory[1].RefID != dishB {
		t.Errorf("expected older view second, got %s", activity.ViewHistory[1].Name)
	}
}

func TestRecordViewBounded(t *testing.T) {
	accounts := memstore.NewAccountStore()
	profiles := memstore.NewProfileStore()
	svc := NewService(accounts, profiles, nil, 0, 3)
	id := seedAccount(accounts, profiles, "viewer@example.com")

	for i := 0; i < 5; i++ {
		if err := svc.RecordView(context.Background(), id, domain.ViewTypeDish, primitive.NewObjectID(), "dish", ""); err != nil {
			t.Fatalf("record view %d failed: %v", i, err)
		}
	}

	activity, _ := svc.Activity(context.Background(), id)
	if len(activity.ViewHistory) != 3 {
		t.Errorf("expected history capped at 3, got %d", len(activity.ViewHistory))
	}
}

func TestRecordViewRejectsUnknownType(t *testing.T) {
	svc, accounts, profiles := newTestService()
	id := seedAccount(accounts, profiles, "viewer@example.com")

	err := svc.RecordView(context.Background(), id, "recipe", primitive.NewObjectID(), "x", "")
	if !apperr.IsCode(err, apperr.CodeInvalidInput) {
		t.Errorf("expected code %s, got %v", apperr.CodeInvalidInput, err)
	}
}

func TestMarkNotificationsRead(t *testing.T) {
	svc, accounts, profiles := newTestService()
	id := seedAccount(accounts, profiles, "inbox@example.com")

	for i := 0; i < 2; i++ {
		_ = profiles.PushNotification(context.Background(), id, domain.Notification{
			Type: domain.NotificationFollow, Message: "hi", CreatedAt: time.Now(),
		})
	}

	if err := svc.MarkNotificationsRead(context.Background(), id); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}

	inbox, _ := svc.Notifications(context.Background(), id)
	if inbox.UnreadCount != 0 {
		t.Errorf("expected unread count 0, got %d", inbox.UnreadCount)
	}
	for i, n := range inbox.Notifications {
		if !n.Read {
			t.Errorf("notification %d still unread", i)
		}
	}
}

func TestUpdatePreferences(t *testing.T) {
	svc, accounts, profiles := newTestService()
	id := seedAccount(accounts, profiles, "prefs@example.com")

	prefs, err := svc.UpdatePreferences(context.Background(), id, map[string]any{
		"dietary_restrictions":  []any{"vegetarian", "nut-free"},
		"difficulty_preference": "medium",
		"unknown":               "ignored",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(prefs.DietaryRestrictions) != 2 || prefs.DietaryRestrictions[0] != "vegetarian" {
		t.Errorf("unexpected dietary restrictions: %v", prefs.DietaryRestrictions)
	}
	if prefs.DifficultyPreference != "medium" {
		t.Errorf("expected difficulty 'medium', got %s", prefs.DifficultyPreference)
	}
}

func TestUpdatePreferencesInvalidDifficulty(t *testing.T) {
	svc, accounts, profiles := newTestService()
	id := seedAccount(accounts, profiles, "prefs@example.com")

	_, err := svc.UpdatePreferences(context.Background(), id, map[string]any{
		"difficulty_preference": "expert",
	})
	if !apperr.IsCode(err, apperr.CodeInvalidInput) {
		t.Errorf("expected code %s, got %v", apperr.CodeInvalidInput, err)
	}
}

func TestUpdatePreferencesNoFields(t *testing.T) {
	svc, accounts, profiles := newTestService()
	id := seedAccount(accounts, profiles, "prefs@example.com")

	_, err := svc.UpdatePreferences(context.Background(), id, map[string]any{"unknown": true})
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Errorf("expected code %s, got %v", apperr.CodeBadRequest, err)
	}
}

func TestToStringSlice(t *testing.T) {
	if v, ok := toStringSlice([]string{"a"}); !ok || len(v) != 1 {
		t.Errorf("expected []string pass-through, got %v %v", v, ok)
	}
	if v, ok := toStringSlice([]any{"a", "b"}); !ok || len(v) != 2 {
		t.Errorf("expected []any conversion, got %v %v", v, ok)
	}
	if _, ok := toStringSlice([]any{"a", 1}); ok {
		t.Error("mixed []any must not convert")
	}
	if _, ok := toStringSlice("a"); ok {
		t.Error("scalar must not convert")
	}
}
