package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"medibook/internal/doctors/service"
	apperrors "medibook/pkg/errors"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type DoctorHandler struct {
	service service.DoctorService
	log     *logger.Logger
}

func NewDoctorHandler(service service.DoctorService, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{
		service: service,
		log:     log,
	}
}

func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var doctor model.Doctor
	if err := json.NewDecoder(r.Body).Decode(&doctor); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), &doctor); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, doctor); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *DoctorHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctor, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, doctor); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *DoctorHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	doctors, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, doctors, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "error", err)
	}
}

func (h *DoctorHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	freeText := query.Get("q")
	specialty := query.Get("speciality")
	if specialty == "" {
		specialty = query.Get("specialty")
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	doctors, total, err := h.service.Search(r.Context(), freeText, specialty, limit, offset)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WritePaginated(w, doctors, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "error", err)
	}
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.DoctorUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.UpdateProfile(r.Context(), ps.ByName("id"), &update); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *DoctorHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	available, err := h.service.ToggleAvailability(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ToggleAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{"available": available}); err != nil {
		h.log.Error("failed to write success response", "handler", "ToggleAvailability", "error", err)
	}
}

func (h *DoctorHandler) AddSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Slots []model.Slot `json:"slots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "AddSlots", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.AddSlots(r.Context(), ps.ByName("id"), body.Slots); err != nil {
		h.writeError(w, "AddSlots", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *DoctorHandler) GroupedSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	asOf := time.Now()
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.writeError(w, "GroupedSlots", apperrors.InvalidInput("invalid as_of format, must be RFC3339"))
			return
		}
		asOf = parsed
	}

	grouped, err := h.service.GroupedSlots(r.Context(), ps.ByName("id"), asOf)
	if err != nil {
		h.writeError(w, "GroupedSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, grouped); err != nil {
		h.log.Error("failed to write success response", "handler", "GroupedSlots", "error", err)
	}
}

func (h *DoctorHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *DoctorHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/doctors", h.Create)
	router.GET("/api/v1/doctors", h.GetAll)
	router.GET("/api/v1/doctors/search", h.Search)
	router.GET("/api/v1/doctors/id/:id", h.GetByID)
	router.PATCH("/api/v1/doctors/id/:id", h.Update)
	router.POST("/api/v1/doctors/id/:id/availability", h.ToggleAvailability)
	router.POST("/api/v1/doctors/id/:id/slots", h.AddSlots)
	router.GET("/api/v1/doctors/id/:id/slots", h.GroupedSlots)
}
