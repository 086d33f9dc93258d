package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"medibook/internal/appointments/service"
	apperrors "medibook/pkg/errors"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

type bookRequest struct {
	PatientID string `json:"patient_id"`
	Slot      string `json:"slot"`
}

type lifecycleRequest struct {
	DoctorID string `json:"doctor_id"`
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body bookRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "Book", apperrors.InvalidInput("Invalid request body"))
		return
	}

	slot, err := time.Parse(time.RFC3339, body.Slot)
	if err != nil {
		h.writeError(w, "Book", apperrors.InvalidInput("invalid slot format, must be RFC3339"))
		return
	}

	appointment, err := h.service.Reserve(r.Context(), ps.ByName("id"), body.PatientID, slot)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, appointment); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appointment, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *AppointmentHandler) ListByDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByDoctor", err)
		return
	}

	appointments, total, err := h.service.GetByDoctor(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListByDoctor", err)
		return
	}

	if err := httputil.WritePaginated(w, appointments, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByDoctor", "error", err)
	}
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body lifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "Cancel", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Cancel(r.Context(), ps.ByName("id"), body.DoctorID); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body lifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "Complete", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Complete(r.Context(), ps.ByName("id"), body.DoctorID); err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) Dashboard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dashboard, err := h.service.Dashboard(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Dashboard", err)
		return
	}

	if err := httputil.WriteSuccess(w, dashboard); err != nil {
		h.log.Error("failed to write success response", "handler", "Dashboard", "error", err)
	}
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/doctors/id/:id/book", h.Book)
	router.GET("/api/v1/doctors/id/:id/appointments", h.ListByDoctor)
	router.GET("/api/v1/doctors/id/:id/dashboard", h.Dashboard)
	router.GET("/api/v1/appointments/id/:id", h.GetByID)
	router.POST("/api/v1/appointments/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/appointments/id/:id/complete", h.Complete)
}
