package proposal

import (
	"errors"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/huzaifa321s/proposal-maker/logger"
)

// Handler exposes the proposal store over HTTP. Responses keep the
// success/message envelope the frontend already consumes.
type Handler struct {
	store *Store
	log   *logger.Logger
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store, log: logger.New()}
}

// Register mounts the proposal and BDM routes.
func (h *Handler) Register(api fiber.Router) {
	proposals := api.Group("/proposals")
	proposals.Post("/", h.create)
	proposals.Get("/", h.list)
	proposals.Get("/:id", h.get)
	proposals.Put("/:id", h.update)
	proposals.Delete("/:id", h.remove)

	api.Get("/bdms", h.listBDMs)
}

func (h *Handler) create(c *fiber.Ctx) error {
	var p Proposal
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	data, err := h.store.Create(c.Context(), &p)
	if errors.Is(err, ErrMissingFields) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Required fields missing",
		})
	}
	if err != nil {
		h.log.WithRequest(c).WithError(err).Error("proposal creation failed")
		return h.internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Proposal created successfully",
		"data":    data,
	})
}

func (h *Handler) list(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	result, err := h.store.List(c.Context(), page, limit)
	if err != nil {
		h.log.WithRequest(c).WithError(err).Error("fetching proposals failed")
		return h.internalError(c)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Proposals fetched successfully",
		"currentPage":    page,
		"totalPages":     totalPages(result.TotalCount, limit),
		"totalProposals": result.TotalCount,
		"proposals":      result.Items,
	})
}

func (h *Handler) get(c *fiber.Ctx) error {
	data, err := h.store.GetByID(c.Context(), c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		return h.notFound(c)
	}
	if err != nil {
		h.log.WithRequest(c).WithError(err).Error("fetching proposal failed")
		return h.internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Proposal fetched successfully",
		"data":    data,
	})
}

func (h *Handler) update(c *fiber.Ctx) error {
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	data, err := h.store.Update(c.Context(), c.Params("id"), fields)
	if errors.Is(err, ErrNotFound) {
		return h.notFound(c)
	}
	if err != nil {
		h.log.WithRequest(c).WithError(err).Error("updating proposal failed")
		return h.internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Proposal updated successfully",
		"data":    data,
	})
}

func (h *Handler) remove(c *fiber.Ctx) error {
	data, err := h.store.Delete(c.Context(), c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		return h.notFound(c)
	}
	if err != nil {
		h.log.WithRequest(c).WithError(err).Error("deleting proposal failed")
		return h.internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Proposal deleted successfully",
		"data":    data,
	})
}

func (h *Handler) listBDMs(c *fiber.Ctx) error {
	bdms, err := h.store.ListBDMs(c.Context())
	if err != nil {
		h.log.WithRequest(c).WithError(err).Error("fetching BDMs failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"data":    []BDM{},
			"error":   "Failed to fetch BDMs",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": bdms})
}

// totalPages is the page count for total records shown limit per page.
func totalPages(total int64, limit int) int {
	if limit < 1 {
		limit = 1
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

func (h *Handler) notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": "Proposal not found",
	})
}

func (h *Handler) internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Internal server error",
	})
}
