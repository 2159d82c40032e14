package journals

import "github.com/go-chi/chi/v5"

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Detail)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/lines", h.AddLine)
	r.Put("/{id}/lines/{lineID}", h.UpdateLine)
	r.Delete("/{id}/lines/{lineID}", h.RemoveLine)
	r.Post("/{id}/post", h.Post)
	r.Post("/{id}/unpost", h.Unpost)
}
