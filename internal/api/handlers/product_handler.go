package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/service"
	"github.com/maheshrc27/curapost/internal/transfer"
)

type ProductHandler struct {
	curation service.CurationService
}

func NewProductHandler(curation service.CurationService) *ProductHandler {
	return &ProductHandler{curation: curation}
}

func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	filter := models.ProductFilter{
		Keyword:  c.Query("keyword"),
		Sort:     models.ProductSort(c.Query("sort", string(models.ProductSortLatest))),
		Unposted: c.QueryBool("unposted", false),
		Limit:    limit,
		Offset:   offset,
	}

	products, err := h.curation.ListProducts(c.Context(), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	if products == nil {
		products = []*models.Product{}
	}
	return c.Status(fiber.StatusOK).JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	product, err := h.curation.GetProduct(c.Context(), productID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

func (h *ProductHandler) RemoveProduct(c *fiber.Ctx) error {
	productID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.curation.DeleteProduct(c.Context(), productID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) SelectMedia(c *fiber.Ctx) error {
	productID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req transfer.SelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	selected, err := h.curation.SelectMedia(c.Context(), productID, req.MediaIDs)
	if err != nil {
		return errorResponse(c, err)
	}
	if selected == nil {
		selected = []*models.Media{}
	}
	return c.Status(fiber.StatusOK).JSON(selected)
}
