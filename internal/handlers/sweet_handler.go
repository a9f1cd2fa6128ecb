package handlers

import (
	"sweetshop/internal/models"
	"sweetshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// SweetHandler handles HTTP requests for the inventory.
type SweetHandler struct {
	service  *services.SweetService
	validate *validator.Validate
}

// NewSweetHandler creates a new SweetHandler.
func NewSweetHandler(service *services.SweetService) *SweetHandler {
	return &SweetHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the sweet routes. Every route goes through
// authRequired; adminOnly additionally guards restock and delete.
func (h *SweetHandler) RegisterRoutes(router fiber.Router, authRequired, adminOnly fiber.Handler) {
	sweets := router.Group("/sweets", authRequired)
	sweets.Post("/", h.HandleCreate)
	sweets.Get("/", h.HandleList)
	// Registered before /:id so "search" is not taken for an id.
	sweets.Get("/search", h.HandleSearch)
	sweets.Get("/:id", h.HandleGet)
	sweets.Put("/:id", h.HandleUpdate)
	sweets.Post("/:id/purchase", h.HandlePurchase)
	sweets.Post("/:id/restock", adminOnly, h.HandleRestock)
	sweets.Delete("/:id", adminOnly, h.HandleDelete)
}

// CreateSweetRequest represents the request body for creating a sweet.
type CreateSweetRequest struct {
	Name     string   `json:"name" validate:"required"`
	Category string   `json:"category" validate:"required"`
	Price    *float64 `json:"price" validate:"required,gt=0"`
	Quantity *int     `json:"quantity" validate:"required,gte=0"`
}

// UpdateSweetRequest is a partial update; omitted fields are left unchanged.
type UpdateSweetRequest struct {
	Name     *string  `json:"name" validate:"omitnil,min=1"`
	Category *string  `json:"category" validate:"omitnil,min=1"`
	Price    *float64 `json:"price" validate:"omitnil,gt=0"`
	Quantity *int     `json:"quantity" validate:"omitnil,gte=0"`
}

// QuantityRequest is the body of purchase and restock.
type QuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gt=0"`
}

// SearchQuery holds the search filters from the query string.
type SearchQuery struct {
	Name     string   `query:"name"`
	Category string   `query:"category"`
	MinPrice *float64 `query:"min_price" validate:"omitnil,gte=0"`
	MaxPrice *float64 `query:"max_price" validate:"omitnil,gte=0"`
}

// HandleCreate adds a sweet.
func (h *SweetHandler) HandleCreate(c *fiber.Ctx) error {
	var req CreateSweetRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	sweet, err := h.service.Create(c.UserContext(), &models.Sweet{
		Name:     req.Name,
		Category: req.Category,
		Price:    *req.Price,
		Quantity: *req.Quantity,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sweet)
}

// HandleList returns every sweet.
func (h *SweetHandler) HandleList(c *fiber.Ctx) error {
	sweets, err := h.service.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sweets)
}

// HandleSearch filters sweets by name, category and price range.
func (h *SweetHandler) HandleSearch(c *fiber.Ctx) error {
	var q SearchQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{
			Detail: "Invalid query parameters",
		})
	}
	if ok, err := validate(c, h.validate, &q); !ok {
		return err
	}

	sweets, err := h.service.Search(c.UserContext(), models.SweetFilter{
		Name:     q.Name,
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sweets)
}

// HandleGet returns one sweet.
func (h *SweetHandler) HandleGet(c *fiber.Ctx) error {
	id, ok, err := sweetID(c)
	if !ok {
		return err
	}
	sweet, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sweet)
}

// HandleUpdate applies a partial update.
func (h *SweetHandler) HandleUpdate(c *fiber.Ctx) error {
	id, ok, err := sweetID(c)
	if !ok {
		return err
	}
	var req UpdateSweetRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	sweet, err := h.service.Update(c.UserContext(), id, models.SweetPatch{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sweet)
}

// HandlePurchase decrements stock.
func (h *SweetHandler) HandlePurchase(c *fiber.Ctx) error {
	id, ok, err := sweetID(c)
	if !ok {
		return err
	}
	var req QuantityRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	sweet, err := h.service.Purchase(c.UserContext(), id, *req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sweet)
}

// HandleRestock increments stock. Admin only.
func (h *SweetHandler) HandleRestock(c *fiber.Ctx) error {
	id, ok, err := sweetID(c)
	if !ok {
		return err
	}
	var req QuantityRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	sweet, err := h.service.Restock(c.UserContext(), id, *req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sweet)
}

// HandleDelete removes a sweet. Admin only.
func (h *SweetHandler) HandleDelete(c *fiber.Ctx) error {
	id, ok, err := sweetID(c)
	if !ok {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.MessageResponse{Message: "Sweet deleted successfully"})
}
