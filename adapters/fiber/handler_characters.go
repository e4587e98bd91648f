package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/fumble/core"
)

type describeRequest struct {
	Prompt string `json:"prompt" validate:"max=2000"`
}

// ============================================
// CHARACTERS
// ============================================

func (a *Adapter) listCharacters(c fiber.Ctx) error {
	characters, err := a.fumble.Characters.List(c.Context(), caller(c), c.Query("userId"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(characters)
}

func (a *Adapter) createCharacter(c fiber.Ctx) error {
	var input core.CharacterInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	character, err := a.fumble.Characters.Create(c.Context(), caller(c), input)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(character)
}

func (a *Adapter) getCharacterBySlug(c fiber.Ctx) error {
	character, err := a.fumble.Characters.GetBySlug(c.Context(), caller(c), c.Params("slug"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(character)
}

func (a *Adapter) getCharacter(c fiber.Ctx) error {
	character, err := a.fumble.Characters.Get(c.Context(), caller(c), c.Params("id"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(character)
}

func (a *Adapter) updateCharacter(c fiber.Ctx) error {
	var input core.CharacterInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	character, err := a.fumble.Characters.Update(c.Context(), caller(c), c.Params("id"), input)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(character)
}

func (a *Adapter) deleteCharacter(c fiber.Ctx) error {
	if err := a.fumble.Characters.Delete(c.Context(), caller(c), c.Params("id")); err != nil {
		return a.handleError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (a *Adapter) describeCharacter(c fiber.Ctx) error {
	var body describeRequest
	if len(c.Body()) > 0 {
		if err := a.bind(c, &body); err != nil {
			return a.handleError(c, err)
		}
	}

	description, err := a.fumble.Characters.GenerateDescription(c.Context(), caller(c), c.Params("id"), body.Prompt)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(fiber.Map{"description": description})
}

// ============================================
// SHEETS
// ============================================

func (a *Adapter) listSheets(c fiber.Ctx) error {
	sheets, err := a.fumble.Sheets.List(c.Context(), caller(c), c.Params("id"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(sheets)
}

func (a *Adapter) createSheet(c fiber.Ctx) error {
	var input core.SheetInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	sheet, err := a.fumble.Sheets.Create(c.Context(), caller(c), c.Params("id"), input)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(sheet)
}

func (a *Adapter) getSheet(c fiber.Ctx) error {
	sheet, err := a.fumble.Sheets.Get(c.Context(), caller(c), c.Params("id"), c.Params("sheetId"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(sheet)
}

func (a *Adapter) updateSheet(c fiber.Ctx) error {
	var input core.SheetInput
	if err := a.bind(c, &input); err != nil {
		return a.handleError(c, err)
	}

	sheet, err := a.fumble.Sheets.Update(c.Context(), caller(c), c.Params("id"), c.Params("sheetId"), input)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(sheet)
}

func (a *Adapter) deleteSheet(c fiber.Ctx) error {
	if err := a.fumble.Sheets.Delete(c.Context(), caller(c), c.Params("id"), c.Params("sheetId")); err != nil {
		return a.handleError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================
// CATALOGUE AND WORLDANVIL
// ============================================

func (a *Adapter) listRpgSystems(c fiber.Ctx) error {
	systems, err := a.fumble.Systems.List(c.Context())
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(systems)
}

func (a *Adapter) listWorlds(c fiber.Ctx) error {
	worlds, err := a.fumble.WorldAnvil.Worlds(c.Context(), CurrentUser(c).ID)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(worlds)
}

func (a *Adapter) listBlockFolders(c fiber.Ctx) error {
	folders, err := a.fumble.WorldAnvil.BlockFolders(c.Context(), CurrentUser(c).ID, c.Params("worldId"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(folders)
}

func (a *Adapter) getBlock(c fiber.Ctx) error {
	block, err := a.fumble.WorldAnvil.Block(c.Context(), CurrentUser(c).ID, c.Params("blockId"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(block)
}
