package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/onlinekart/backend/internal/application/catalog"
	"github.com/onlinekart/backend/internal/interfaces/http/middleware"
)

// maxProductImageBytes caps product image uploads at 5 MiB
const maxProductImageBytes = 5 << 20

// ProductHandler handles product HTTP requests
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// List godoc
// @Summary      List products
// @Description  Paginated list of active products, newest first. Staff users may pass all=true to include inactive products.
// @Tags         products
// @Produce      json
// @Param        q query string false "Title search"
// @Param        category query string false "Category slug filter"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        all query bool false "Include inactive products (staff only)"
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Router       /products/ [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	// Inactive products are only visible to staff
	if c.Query("all") == "true" && isStaff(c) {
		filter.IncludeInactive = true
	}

	products, total, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, products, total, page, pageSize)
}

// Get godoc
// @Summary      Get a product
// @Description  Fetch a single product by slug. Inactive products are only visible to staff.
// @Tags         products
// @Produce      json
// @Param        slug path string true "Product slug"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{slug}/ [get]
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.productService.GetBySlug(c.Request.Context(), c.Param("slug"), isStaff(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, product)
}

// Create godoc
// @Summary      Create a product
// @Description  Create a product; the slug is generated from the title
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateProductRequest true "Product details"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/ [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, product)
}

// Update godoc
// @Summary      Update a product
// @Description  Partially update a product; a new title regenerates the slug
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        slug path string true "Product slug"
// @Param        request body catalogapp.UpdateProductRequest true "Fields to update"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{slug}/ [put]
func (h *ProductHandler) Update(c *gin.Context) {
	var req catalogapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	product, err := h.productService.Update(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, product)
}

// Delete godoc
// @Summary      Delete a product
// @Tags         products
// @Produce      json
// @Param        slug path string true "Product slug"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{slug}/ [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// UploadImage godoc
// @Summary      Upload a product image
// @Description  Multipart upload; the image is stored in object storage and the product's image URL is updated
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        slug path string true "Product slug"
// @Param        image formData file true "Image file"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{slug}/image/ [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		h.BadRequest(c, "Image file is required")
		return
	}

	if fileHeader.Size > maxProductImageBytes {
		h.BadRequest(c, "Image file exceeds the 5 MiB limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read image file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	product, err := h.productService.UploadImage(
		c.Request.Context(),
		c.Param("slug"),
		fileHeader.Filename,
		contentType,
		file,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, product)
}
