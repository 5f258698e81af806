package http

import (
	"recipe_server/core/service/admin"
	"recipe_server/core/service/cleanup"
	"recipe_server/core/service/identity"
	"recipe_server/core/service/migration"
	"recipe_server/infra/middleware"
	"recipe_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles migration and cleanup admin endpoints. Every
// route passes the admin gate first.
type AdminHandler struct {
	resolver  *identity.ResolverService
	gate      *admin.GateService
	migration *migration.Service
	cleanup   *cleanup.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	resolver *identity.ResolverService,
	gate *admin.GateService,
	mig *migration.Service,
	cl *cleanup.Service,
) *AdminHandler {
	return &AdminHandler{
		resolver:  resolver,
		gate:      gate,
		migration: mig,
		cleanup:   cl,
	}
}

// Register registers admin routes.
func (h *AdminHandler) Register(router fiber.Router) {
	adminGroup := router.Group("/admin", h.requireAdmin)

	adminGroup.Post("/migrations/accounts/:id", h.MigrateAccount)
	adminGroup.Post("/migrations/accounts", h.MigrateAll)
	adminGroup.Get("/migrations/status", h.MigrationStatus)

	adminGroup.Post("/cleanup/run", h.RunCleanup)
}

// requireAdmin resolves the caller and enforces the admin gate.
func (h *AdminHandler) requireAdmin(c *fiber.Ctx) error {
	account, err := CurrentAccount(c, h.resolver)
	if err != nil {
		return err
	}
	claims := middleware.ClaimsFromCtx(c)
	if err := h.gate.Require(c.Context(), claims, account); err != nil {
		return err
	}
	c.Locals("admin_account", account)
	return c.Next()
}

// MigrateAccount migrates one account to the split profile schema.
func (h *AdminHandler) MigrateAccount(c *fiber.Ctx) error {
	id, err := ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	migrated, err := h.migration.MigrateAccount(c.Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"migrated": migrated})
}

// MigrateAll migrates every unmigrated account and returns the full
// run report, including per-account failures.
func (h *AdminHandler) MigrateAll(c *fiber.Ctx) error {
	report, err := h.migration.MigrateAll(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, report)
}

// MigrationStatus reports remaining legacy accounts.
func (h *AdminHandler) MigrationStatus(c *fiber.Ctx) error {
	status, err := h.migration.Status(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, status)
}

// RunCleanup triggers one retention cleanup pass and returns the run
// report.
func (h *AdminHandler) RunCleanup(c *fiber.Ctx) error {
	report, err := h.cleanup.Run(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, report)
}
