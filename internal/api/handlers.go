package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/infrastructure/cloudinary"
	"github.com/example/storefront/internal/infrastructure/github"
)

// Uploader is the image hosting provider the upload endpoint proxies to.
type Uploader interface {
	Upload(ctx context.Context, imageData, folder string) (*cloudinary.UploadResult, error)
}

// Handlers serves the catalog and upload endpoints.
type Handlers struct {
	catalog      *catalog.Service
	uploader     Uploader
	uploadFolder string
}

func NewHandlers(catalogSvc *catalog.Service, uploader Uploader, uploadFolder string) *Handlers {
	return &Handlers{
		catalog:      catalogSvc,
		uploader:     uploader,
		uploadFolder: uploadFolder,
	}
}

// GetProducts returns the catalog document. A catalog that does not exist
// yet comes back as an empty one, not an error.
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	doc, err := h.catalog.Load(r.Context())
	if err != nil {
		log.Printf("[API] Failed to load catalog: %v", err)
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// UpdateProductsRequest is the full replacement payload from the admin UI.
// Products are raw records so admin-entered shapes normalize the same way
// API-read ones do.
type UpdateProductsRequest struct {
	Products       []map[string]any        `json:"products"`
	BannerSettings *catalog.BannerSettings `json:"bannerSettings"`
}

// UpdateProducts replaces the entire product list. Guards that belong to
// the caller of the write path live here: the featured cap and the
// empty-overwrite check both run before any write is attempted.
func (h *Handlers) UpdateProducts(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Products == nil {
		respondError(w, http.StatusBadRequest, "products array is required")
		return
	}

	products := make([]catalog.Product, 0, len(req.Products))
	for _, raw := range req.Products {
		products = append(products, catalog.Normalize(raw))
	}

	if n := catalog.CountFeatured(products); n > catalog.MaxFeatured {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("You can only feature up to %d products in the Hero section", catalog.MaxFeatured))
		return
	}

	// A stale admin view must not wipe a live catalog.
	if len(products) == 0 {
		current, err := h.catalog.Load(r.Context())
		if err == nil && len(current.Products) > 0 {
			respondError(w, http.StatusBadRequest,
				"Refusing to replace a non-empty catalog with an empty product list")
			return
		}
	}

	result, err := h.catalog.Save(r.Context(), products, req.BannerSettings)
	if err != nil {
		log.Printf("[API] Failed to save catalog: %v", err)
		respondCatalogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Data updated successfully",
		"commit": map[string]string{
			"sha": result.CommitSHA,
			"url": result.CommitURL,
		},
		"file": map[string]string{
			"sha":         result.ContentSHA,
			"url":         result.ContentURL,
			"downloadUrl": result.DownloadURL,
		},
	})
}

// UploadImageRequest carries the image payload and an optional folder hint.
type UploadImageRequest struct {
	ImageData string `json:"imageData"`
	Folder    string `json:"folder"`
}

// UploadImage proxies an image to the hosting provider.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req UploadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ImageData == "" {
		respondError(w, http.StatusBadRequest, "Image data is required")
		return
	}
	if req.Folder == "" {
		req.Folder = h.uploadFolder
	}

	result, err := h.uploader.Upload(r.Context(), req.ImageData, req.Folder)
	if err != nil {
		log.Printf("[API] Image upload failed: %v", err)
		if errors.Is(err, cloudinary.ErrNotConfigured) {
			respondError(w, http.StatusInternalServerError, "Server configuration error")
			return
		}
		respondError(w, http.StatusBadGateway, "Failed to upload image")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"url":       result.URL,
		"public_id": result.PublicID,
		"width":     result.Width,
		"height":    result.Height,
	})
}

// respondCatalogError maps catalog/store failures onto the error taxonomy:
// conflicts are called out distinctly so the admin UI can prompt a
// refresh-and-retry, structural failures are described precisely, and
// anything else from upstream carries only its status code.
func respondCatalogError(w http.ResponseWriter, err error) {
	var upstream *github.UpstreamError
	switch {
	case errors.Is(err, github.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrInvalidDocument):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &upstream):
		respondError(w, http.StatusBadGateway,
			fmt.Sprintf("Upstream store returned status %d", upstream.Status))
	default:
		respondError(w, http.StatusBadGateway, "Upstream store unavailable")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
