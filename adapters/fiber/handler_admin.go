package fiber

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/fumble/core"
)

// optionalBool reads a boolean query filter; absent or unparsable values are nil
func optionalBool(c fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// ============================================
// USERS
// ============================================

func (a *Adapter) adminListUsers(c fiber.Ctx, _ core.AdminUser) error {
	filter := core.UserFilter{
		Search:        c.Query("search"),
		Admin:         optionalBool(c, "admin"),
		HasDiscord:    optionalBool(c, "hasDiscord"),
		HasWorldAnvil: optionalBool(c, "hasWorldAnvil"),
		Limit:         fiber.Query[int](c, "limit"),
		Offset:        fiber.Query[int](c, "offset"),
	}

	list, err := a.fumble.Users.List(c.Context(), filter)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(list)
}

func (a *Adapter) adminCreateUser(c fiber.Ctx, admin core.AdminUser) error {
	var input core.UserInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	user, err := a.fumble.Users.Create(c.Context(), input)
	if err != nil {
		return a.handleError(c, err)
	}
	a.fumble.Logger.Info("admin created user", "admin_id", admin.ID, "user_id", user.ID)
	return c.Status(http.StatusCreated).JSON(user)
}

func (a *Adapter) adminGetUser(c fiber.Ctx, _ core.AdminUser) error {
	user, err := a.fumble.Users.Get(c.Context(), c.Params("id"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(user)
}

func (a *Adapter) adminUpdateUser(c fiber.Ctx, admin core.AdminUser) error {
	var input core.UserInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	user, err := a.fumble.Users.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return a.handleError(c, err)
	}
	a.fumble.Logger.Info("admin updated user", "admin_id", admin.ID, "user_id", user.ID)
	return c.JSON(user)
}

func (a *Adapter) adminDeleteUser(c fiber.Ctx, admin core.AdminUser) error {
	if err := a.fumble.Users.Delete(c.Context(), admin.ID, c.Params("id")); err != nil {
		return a.handleError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================
// RPG SYSTEMS
// ============================================

func (a *Adapter) adminListRpgSystems(c fiber.Ctx, _ core.AdminUser) error {
	systems, err := a.fumble.Systems.List(c.Context())
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(systems)
}

func (a *Adapter) adminCreateRpgSystem(c fiber.Ctx, _ core.AdminUser) error {
	var input core.RpgSystemInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	system, err := a.fumble.Systems.Create(c.Context(), input)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(system)
}

func (a *Adapter) adminUpdateRpgSystem(c fiber.Ctx, _ core.AdminUser) error {
	var input core.RpgSystemInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	system, err := a.fumble.Systems.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(system)
}

func (a *Adapter) adminDeleteRpgSystem(c fiber.Ctx, _ core.AdminUser) error {
	if err := a.fumble.Systems.Delete(c.Context(), c.Params("id")); err != nil {
		return a.handleError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================
// DISCORD
// ============================================

func (a *Adapter) adminDiscordRoles(c fiber.Ctx, _ core.AdminUser) error {
	if a.fumble.Guild == nil {
		return a.handleError(c, core.ErrIntegrationNotConfigured)
	}
	roles, err := a.fumble.Guild.Roles(c.Context())
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(roles)
}

func (a *Adapter) adminDiscordChannels(c fiber.Ctx, _ core.AdminUser) error {
	if a.fumble.Guild == nil {
		return a.handleError(c, core.ErrIntegrationNotConfigured)
	}
	channels, err := a.fumble.Guild.Channels(c.Context())
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(channels)
}
