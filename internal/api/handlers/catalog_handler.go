package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/curapost/internal/service"
	"github.com/maheshrc27/curapost/internal/transfer"
)

type CatalogHandler struct {
	catalog service.CatalogService
}

func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) FetchCatalog(c *fiber.Ctx) error {
	var req struct {
		Keyword string `json:"keyword"`
		Sort    string `json:"sort"`
		Hits    int    `json:"hits"`
		Offset  int    `json:"offset"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse request body",
			})
		}
	}

	summary, err := h.catalog.Ingest(c.Context(), transfer.CatalogFilter{
		Keyword: req.Keyword,
		Sort:    req.Sort,
		Hits:    req.Hits,
		Offset:  req.Offset,
	})
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}
