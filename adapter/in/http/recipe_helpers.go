// Package http implements the HTTP API handlers.
package http

import (
	"recipe_server/core/domain"
	"recipe_server/core/service/identity"
	"recipe_server/infra/middleware"
	"recipe_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentAccount resolves the caller's account from the verified
// claims. Resolution is upsert-shaped, so the first authenticated
// request creates the account and later ones just touch last-login.
func CurrentAccount(c *fiber.Ctx, resolver *identity.ResolverService) (*domain.Account, error) {
	claims := middleware.ClaimsFromCtx(c)
	if claims == nil {
		return nil, apperr.Unauthorized("")
	}
	account, _, err := resolver.Resolve(c.Context(), claims)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ObjectIDParam parses a path parameter as an object id.
func ObjectIDParam(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidInput(name, "must be a valid object id")
	}
	return id, nil
}

// objectIDFromBody parses an object id carried in a request body.
func objectIDFromBody(raw, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidInput(field, "must be a valid object id")
	}
	return id, nil
}
