package setup

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/stockbook/internal/http/render"
	"github.com/MrJamesThe3rd/stockbook/internal/setup"
)

type Handler struct {
	svc *setup.Service
}

func NewHandler(svc *setup.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.initialize)
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Initialize(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, res)
}
