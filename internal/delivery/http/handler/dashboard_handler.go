package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"clinic-dashboard/internal/analytics"
	"clinic-dashboard/internal/delivery/dto"
	"clinic-dashboard/internal/domain/repository"
	"clinic-dashboard/internal/usecase"
	"clinic-dashboard/pkg/response"
	"clinic-dashboard/pkg/validator"
)

type DashboardHandler struct {
	dashboardUsecase usecase.DashboardUsecase
	validator        *validator.CustomValidator
}

func NewDashboardHandler(dashboardUsecase usecase.DashboardUsecase, validator *validator.CustomValidator) *DashboardHandler {
	return &DashboardHandler{
		dashboardUsecase: dashboardUsecase,
		validator:        validator,
	}
}

// GetOptions handles filter options
// @Summary Get filter options
// @Description Date bounds and the distinct units and specialties of the loaded dataset
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /dashboard/options [get]
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.dashboardUsecase.GetFilterOptions(r.Context())
	if err != nil {
		h.writeError(w, err, "Failed to load filter options")
		return
	}

	response.Success(w, http.StatusOK, "Filter options retrieved successfully", options)
}

// GetDashboard handles the dashboard computation
// @Summary Compute dashboard
// @Description Metrics and chart series for the given filters
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param request body dto.DashboardRequest false "Filters"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /dashboard [post]
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var req dto.DashboardRequest
	if !h.decode(w, r, &req) {
		return
	}

	dashboard, err := h.dashboardUsecase.GetDashboard(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "Failed to compute dashboard")
		return
	}

	message := "Dashboard computed successfully"
	if dashboard.Empty {
		message = dashboard.Notice
	}
	response.Success(w, http.StatusOK, message, dashboard)
}

// Export handles the filtered data download
// @Summary Export filtered appointments
// @Description Filtered rows as CSV (default) or XLSX; display=true renders dates as DD/MM/YYYY
// @Tags Dashboard
// @Accept json
// @Produce text/csv
// @Param format query string false "csv or xlsx" default(csv)
// @Param display query bool false "DD/MM/YYYY dates" default(false)
// @Param request body dto.DashboardRequest false "Filters"
// @Success 200 {file} file
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /dashboard/export [post]
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req dto.ExportRequest
	if !h.decode(w, r, &req.DashboardRequest) {
		return
	}

	query := r.URL.Query()
	req.Format = query.Get("format")
	if raw := query.Get("display"); raw != "" {
		display, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid display flag", nil)
			return
		}
		req.Display = display
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	file, err := h.dashboardUsecase.Export(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "Failed to export data")
		return
	}

	response.Attachment(w, file.Filename, file.ContentType, file.Data)
}

// Refresh handles dataset reload
// @Summary Reload dataset
// @Description Drops the cached dataset and reloads it from the source
// @Tags Dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	options, err := h.dashboardUsecase.Refresh(r.Context())
	if err != nil {
		h.writeError(w, err, "Failed to reload dataset")
		return
	}

	response.Success(w, http.StatusOK, "Dataset reloaded successfully", options)
}

// decode reads an optional JSON body into req and validates it.
// An empty body selects the defaults.
func (h *DashboardHandler) decode(w http.ResponseWriter, r *http.Request, req *dto.DashboardRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}

	if err := h.validator.Validate(req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return false
	}
	return true
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrDataSource):
		response.ServiceUnavailable(w, "Appointment data source unavailable")
	case errors.Is(err, usecase.ErrInvalidDate):
		response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
	case errors.Is(err, usecase.ErrInvalidDateRange):
		response.Error(w, http.StatusBadRequest, "Start date must not be after end date", nil)
	case errors.Is(err, usecase.ErrEmptyFilterResult):
		response.NotFound(w, analytics.EmptyResultNotice)
	case errors.Is(err, analytics.ErrUnsupportedFormat):
		response.Error(w, http.StatusBadRequest, "Unsupported export format", nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
