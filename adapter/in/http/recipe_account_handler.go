package http

import (
	"recipe_server/core/service/identity"
	"recipe_server/core/service/profile"
	"recipe_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles account and profile endpoints.
type AccountHandler struct {
	resolver *identity.ResolverService
	profiles *profile.Service
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(resolver *identity.ResolverService, profiles *profile.Service) *AccountHandler {
	return &AccountHandler{resolver: resolver, profiles: profiles}
}

// Register registers account routes.
func (h *AccountHandler) Register(router fiber.Router) {
	accounts := router.Group("/accounts")

	accounts.Post("/resolve", h.Resolve)
	accounts.Get("/me", h.Me)
	accounts.Patch("/me", h.UpdateMe)

	accounts.Get("/me/social", h.MySocial)
	accounts.Get("/me/activity", h.MyActivity)
	accounts.Get("/me/notifications", h.MyNotifications)
	accounts.Post("/me/notifications/read", h.MarkNotificationsRead)
	accounts.Get("/me/preferences", h.MyPreferences)
	accounts.Patch("/me/preferences", h.UpdatePreferences)

	accounts.Post("/me/views", h.RecordView)
	accounts.Post("/me/favorites/:dishId", h.AddFavorite)
	accounts.Delete("/me/favorites/:dishId", h.RemoveFavorite)
	accounts.Post("/me/cooked/:dishId", h.AddCooked)

	accounts.Get("/:id", h.Get)
	accounts.Get("/:id/social", h.Social)
	accounts.Post("/:id/follow", h.Follow)
	accounts.Delete("/:id/follow", h.Unfollow)
}

// =============================================================================
// Identity
// =============================================================================

// Resolve resolves the caller's claims into an account, creating it on
// first contact.
func (h *AccountHandler) Resolve(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	return response.OK(c, account)
}

// Me returns the caller's account.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	return response.OK(c, account)
}

// UpdateMe applies a partial update to the caller's account.
func (h *AccountHandler) UpdateMe(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}

	var updates map[string]any
	if err := c.BodyParser(&updates); err != nil {
		return err
	}

	updated, err := h.resolver.UpdateAccount(c.Context(), account.ID, updates)
	if err != nil {
		return err
	}
	return response.OK(c, updated)
}

// Get returns another account's public record.
func (h *AccountHandler) Get(c *fiber.Ctx) error {
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	account, err := h.resolver.GetAccount(c.Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, account)
}

// =============================================================================
// Profiles
// =============================================================================

func (h *AccountHandler) MySocial(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	social, err := h.profiles.Social(c.Context(), account.ID)
	if err != nil {
		return err
	}
	return response.OK(c, social)
}

func (h *AccountHandler) Social(c *fiber.Ctx) error {
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	social, err := h.profiles.Social(c.Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, social)
}

func (h *AccountHandler) MyActivity(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	activity, err := h.profiles.Activity(c.Context(), account.ID)
	if err != nil {
		return err
	}
	return response.OK(c, activity)
}

func (h *AccountHandler) MyNotifications(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	notifications, err := h.profiles.Notifications(c.Context(), account.ID)
	if err != nil {
		return err
	}
	return response.OK(c, notifications)
}

func (h *AccountHandler) MarkNotificationsRead(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	if err := h.profiles.MarkNotificationsRead(c.Context(), account.ID); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"marked": true})
}

func (h *AccountHandler) MyPreferences(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	prefs, err := h.profiles.Preferences(c.Context(), account.ID)
	if err != nil {
		return err
	}
	return response.OK(c, prefs)
}

func (h *AccountHandler) UpdatePreferences(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}

	var updates map[string]any
	if err := c.BodyParser(&updates); err != nil {
		return err
	}

	prefs, err := h.profiles.UpdatePreferences(c.Context(), account.ID, updates)
	if err != nil {
		return err
	}
	return response.OK(c, prefs)
}

// =============================================================================
// Follow Graph
// =============================================================================

func (h *AccountHandler) Follow(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	followeeID, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.profiles.Follow(c.Context(), account.ID, followeeID); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"following": true})
}

func (h *AccountHandler) Unfollow(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	followeeID, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.profiles.Unfollow(c.Context(), account.ID, followeeID); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"following": false})
}

// =============================================================================
// Activity
// =============================================================================

type recordViewRequest struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

func (h *AccountHandler) RecordView(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}

	var req recordViewRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	refID, err := objectIDFromBody(req.ID, "id")
	if err != nil {
		return err
	}

	if err := h.profiles.RecordView(c.Context(), account.ID, req.Type, refID, req.Name, req.ImageURL); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"recorded": true})
}

func (h *AccountHandler) AddFavorite(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	dishID, err := ObjectIDParam(c, "dishId")
	if err != nil {
		return err
	}
	if err := h.profiles.AddFavorite(c.Context(), account.ID, dishID); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"favorite": true})
}

func (h *AccountHandler) RemoveFavorite(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	dishID, err := ObjectIDParam(c, "dishId")
	if err != nil {
		return err
	}
	if err := h.profiles.RemoveFavorite(c.Context(), account.ID, dishID); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"favorite": false})
}

func (h *AccountHandler) AddCooked(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	dishID, err := ObjectIDParam(c, "dishId")
	if err != nil {
		return err
	}
	if err := h.profiles.AddCooked(c.Context(), account.ID, dishID); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"cooked": true})
}
