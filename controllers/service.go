package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/catalog"
	"github.com/meinhoongagan/homeservice-app/middleware"
)

type CatalogController struct {
	catalog *catalog.Catalog
}

func NewCatalogController(c *catalog.Catalog) *CatalogController {
	return &CatalogController{catalog: c}
}

// CreateService adds a service offering for the signed-in provider
func (h *CatalogController) CreateService(c *fiber.Ctx) error {
	var input catalog.Input
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}
	svc, err := h.catalog.Add(c.UserContext(), middleware.Session(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(svc)
}

func (h *CatalogController) UpdateService(c *fiber.Ctx) error {
	var input catalog.Input
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}
	svc, err := h.catalog.Update(c.UserContext(), middleware.Session(c), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(svc)
}

func (h *CatalogController) DeleteService(c *fiber.Ctx) error {
	if err := h.catalog.Remove(c.UserContext(), middleware.Session(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Service deleted successfully"})
}

func (h *CatalogController) GetService(c *fiber.Ctx) error {
	svc, err := h.catalog.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(svc)
}

func (h *CatalogController) GetMyServices(c *fiber.Ctx) error {
	services, err := h.catalog.Mine(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services)
}

// SearchServices lists offerings in ?category= filtered by the ?q= text
func (h *CatalogController) SearchServices(c *fiber.Ctx) error {
	services, err := h.catalog.Search(c.UserContext(), c.Query("category"), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services)
}
