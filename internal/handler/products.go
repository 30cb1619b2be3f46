package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/middleware"
	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/service"
	"github.com/mmeshcher/comfyshop/internal/storage"
	"github.com/mmeshcher/comfyshop/internal/validation"
)

const maxFormMemory = 1 << 20

// ListProducts возвращает каталог товаров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, "list products", err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "get product", err, zap.Int64("productID", id))
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// CreateProduct создаёт товар из multipart-формы с необязательным изображением.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	values, img, ok := parseProductForm(w, r)
	if !ok {
		return
	}
	defer cleanupForm(r, img)

	p, err := productFromForm(values)
	if err != nil {
		h.writeServiceError(w, "create product", err)
		return
	}

	created, err := h.service.CreateProduct(r.Context(), p, img)
	if err != nil {
		h.writeServiceError(w, "create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct частично обновляет товар. Изменяются только переданные поля формы.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	values, img, ok := parseProductForm(w, r)
	if !ok {
		return
	}
	defer cleanupForm(r, img)

	patch, err := patchFromForm(values)
	if err != nil {
		h.writeServiceError(w, "update product", err)
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), id, patch, img)
	if err != nil {
		h.writeServiceError(w, "update product", err, zap.Int64("productID", id))
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteProduct удаляет товар.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete product", err, zap.Int64("productID", id))
		return
	}

	writeMessage(w, "product deleted")
}

// parseProductForm разбирает multipart- или urlencoded-форму товара.
// Для multipart-формы возвращает загруженное изображение, если оно есть.
func parseProductForm(w http.ResponseWriter, r *http.Request) (url.Values, *service.ImageUpload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+maxFormMemory)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.KindValidationFailed, "malformed form")
			return nil, nil, false
		}
		return r.PostForm, nil, true
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.KindValidationFailed, "malformed multipart form")
		return nil, nil, false
	}
	values := url.Values(r.MultipartForm.Value)

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return values, nil, true
	}
	if err != nil {
		cleanupForm(r, nil)
		middleware.WriteError(w, http.StatusBadRequest, middleware.KindValidationFailed, "unreadable image file")
		return nil, nil, false
	}

	return values, &service.ImageUpload{Filename: header.Filename, Body: file}, true
}

func cleanupForm(r *http.Request, img *service.ImageUpload) {
	if img != nil {
		if c, ok := img.Body.(io.Closer); ok {
			_ = c.Close()
		}
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func productFromForm(values url.Values) (model.Product, error) {
	p := model.Product{
		Name:        strings.TrimSpace(values.Get("name")),
		Description: values.Get("description"),
	}

	var err error
	if p.Price, err = validation.ParsePrice(values.Get("price")); err != nil {
		return p, err
	}
	if s := values.Get("stock"); s != "" {
		if p.Stock, err = validation.ParseStock(s); err != nil {
			return p, err
		}
	}
	if p.Variants, err = validation.ParseVariants(values.Get("variants")); err != nil {
		return p, err
	}

	return p, nil
}

func patchFromForm(values url.Values) (model.ProductPatch, error) {
	var patch model.ProductPatch

	if values.Has("name") {
		v := values.Get("name")
		patch.Name = &v
	}
	if values.Has("description") {
		v := values.Get("description")
		patch.Description = &v
	}
	if values.Has("price") {
		price, err := validation.ParsePrice(values.Get("price"))
		if err != nil {
			return patch, err
		}
		patch.Price = &price
	}
	if values.Has("stock") {
		stock, err := validation.ParseStock(values.Get("stock"))
		if err != nil {
			return patch, err
		}
		patch.Stock = &stock
	}
	if values.Has("variants") {
		variants, err := validation.ParseVariants(values.Get("variants"))
		if err != nil {
			return patch, err
		}
		patch.Variants = &variants
	}

	return patch, nil
}
