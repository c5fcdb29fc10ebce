package handlers

import (
	"net/http"

	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// SupplierHandler handles supplier profile registration and browsing
type SupplierHandler struct {
	supplierRepository repositories.SupplierRepository
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(supplierRepo repositories.SupplierRepository) *SupplierHandler {
	return &SupplierHandler{supplierRepository: supplierRepo}
}

func (h *SupplierHandler) RegisterSupplierRoutes(public, protected *echo.Group) {
	public.GET("/suppliers", h.SearchSuppliers)
	public.GET("/suppliers/:id", h.GetSupplier)
	protected.POST("/suppliers", h.CreateSupplier)
}

// CreateSupplier registers a business profile owned by the caller
func (h *SupplierHandler) CreateSupplier(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateSupplierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	supplier := &models.Supplier{
		OwnerID:      currentUserID,
		BusinessName: req.BusinessName,
		Service:      req.Service,
		Location:     req.Location,
		Website:      req.Website,
		Description:  req.Description,
	}
	if err := h.supplierRepository.CreateSupplier(c.Request().Context(), supplier); err != nil {
		return storeError(c, err, "Failed to register supplier")
	}

	return c.JSON(http.StatusCreated, supplier)
}

func (h *SupplierHandler) GetSupplier(c echo.Context) error {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid supplier ID")
	}
	supplier, err := h.supplierRepository.GetSupplierByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "Failed to load supplier")
	}
	return c.JSON(http.StatusOK, supplier)
}

// SearchSuppliers browses suppliers by ?location= and ?service=
func (h *SupplierHandler) SearchSuppliers(c echo.Context) error {
	p := parsePagination(c)
	suppliers, err := h.supplierRepository.SearchSuppliers(c.Request().Context(), models.SupplierFilter{
		Location: c.QueryParam("location"),
		Service:  c.QueryParam("service"),
		Skip:     p.Skip(),
		Limit:    p.Limit,
	})
	if err != nil {
		return storeError(c, err, "Failed to search suppliers")
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"suppliers": suppliers},
		"meta":    echo.Map{"currentPage": p.Page, "itemsPerPage": p.Limit},
	})
}
