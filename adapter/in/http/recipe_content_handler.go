package http

import (
	"io"

	"recipe_server/core/service/engagement"
	"recipe_server/core/service/identity"
	"recipe_server/pkg/apperr"
	"recipe_server/pkg/response"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

const maxImageBytes = 10 << 20

// ContentHandler handles dish, recipe and engagement endpoints.
type ContentHandler struct {
	resolver   *identity.ResolverService
	engagement *engagement.Service
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(resolver *identity.ResolverService, eng *engagement.Service) *ContentHandler {
	return &ContentHandler{resolver: resolver, engagement: eng}
}

// Register registers content routes.
func (h *ContentHandler) Register(router fiber.Router) {
	dishes := router.Group("/dishes")

	dishes.Get("/", h.List)
	dishes.Post("/", h.Create)
	dishes.Get("/:id", h.Get)
	dishes.Delete("/:id", h.Delete)

	dishes.Get("/:id/recipe", h.GetRecipe)

	dishes.Post("/:id/rate", h.Rate)
	dishes.Post("/:id/like", h.Like)
	dishes.Delete("/:id/like", h.Unlike)

	dishes.Get("/:id/comments", h.ListComments)
	dishes.Post("/:id/comments", h.AddComment)
}

// =============================================================================
// Dish Lifecycle
// =============================================================================

// List returns active dishes, newest first.
func (h *ContentHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	dishes, err := h.engagement.ListDishes(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return response.OKWithMeta(c, dishes, &response.Meta{
		Total:    len(dishes),
		HasMore:  len(dishes) == limit,
		PageSize: limit,
	})
}

// Create creates a dish from a multipart form. The payload field
// carries the dish JSON; an optional image file is uploaded to the
// asset store.
func (h *ContentHandler) Create(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}

	var input engagement.CreateDishInput

	payload := c.FormValue("payload")
	if payload != "" {
		var body struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			CookingTime int      `json:"cooking_time"`
			Difficulty  string   `json:"difficulty"`
			Ingredients []string `json:"ingredients"`
			Steps       []string `json:"steps"`
		}
		if err := json.Unmarshal([]byte(payload), &body); err != nil {
			return apperr.InvalidInput("payload", "must be valid JSON")
		}
		input = engagement.CreateDishInput{
			Name:        body.Name,
			Description: body.Description,
			CookingTime: body.CookingTime,
			Difficulty:  body.Difficulty,
			Ingredients: body.Ingredients,
			Steps:       body.Steps,
		}
	} else if err := c.BodyParser(&input); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		if file.Size > maxImageBytes {
			return apperr.InvalidInput("image", "must be at most 10MB")
		}
		f, err := file.Open()
		if err != nil {
			return apperr.BadRequest("could not read image")
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
		if err != nil {
			return apperr.BadRequest("could not read image")
		}
		input.Image = data
	}

	dish, err := h.engagement.CreateDish(c.Context(), account.ID, input)
	if err != nil {
		return err
	}
	return response.Created(c, dish)
}

// Get returns one dish.
func (h *ContentHandler) Get(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	dish, err := h.engagement.GetDish(c.Context(), id, account.ID)
	if err != nil {
		return err
	}
	return response.OK(c, dish)
}

// Delete soft-deletes a dish; it becomes eligible for permanent
// removal once the retention horizon passes.
func (h *ContentHandler) Delete(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.engagement.DeleteDish(c.Context(), id, account.ID); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"deleted": true})
}

// GetRecipe returns a dish's preparation recipe.
func (h *ContentHandler) GetRecipe(c *fiber.Ctx) error {
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	recipe, err := h.engagement.GetRecipe(c.Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, recipe)
}

// =============================================================================
// Engagement
// =============================================================================

type rateRequest struct {
	Rating int `json:"rating"`
}

// Rate appends a rating and returns the recomputed aggregate.
func (h *ContentHandler) Rate(c *fiber.Ctx) error {
	if _, err := CurrentAccount(c, h.resolver); err != nil {
		return err
	}
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	var req rateRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	avg, count, err := h.engagement.Rate(c.Context(), id, req.Rating)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{
		"average_rating": avg,
		"rating_count":   count,
	})
}

// Like adds the caller to the dish's like set.
func (h *ContentHandler) Like(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	changed, err := h.engagement.Like(c.Context(), id, account.ID)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"liked": true, "changed": changed})
}

// Unlike removes the caller from the dish's like set.
func (h *ContentHandler) Unlike(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	changed, err := h.engagement.Unlike(c.Context(), id, account.ID)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"liked": false, "changed": changed})
}

// =============================================================================
// Comments
// =============================================================================

type commentRequest struct {
	Body string `json:"body"`
}

func (h *ContentHandler) ListComments(c *fiber.Ctx) error {
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	comments, err := h.engagement.ListComments(c.Context(), id, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return response.OK(c, comments)
}

func (h *ContentHandler) AddComment(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	comment, err := h.engagement.AddComment(c.Context(), id, account.ID, req.Body)
	if err != nil {
		return err
	}
	return response.Created(c, comment)
}
