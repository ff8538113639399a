package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/domain"
)

// RequireStaffRole ensures the principal has one of the allowed roles. With no roles
// listed any known staff role passes.
func RequireStaffRole(allowed ...domain.StaffRole) fiber.Handler {
	if len(allowed) == 0 {
		allowed = []domain.StaffRole{domain.StaffRoleAgent, domain.StaffRoleTeamLead, domain.StaffRoleAdmin}
	}
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
