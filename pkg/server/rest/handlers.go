package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/graphmanager"
	"lintang/knooppuntx/pkg/server"
	"lintang/knooppuntx/pkg/server/rest/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"go.uber.org/zap"
)

type LoopService interface {
	PlanLoop(ctx context.Context, req service.LoopRequest) (*datastructure.RouteResult, error)
}

type HealthService interface {
	Health(ctx context.Context) graphmanager.Health
}

type LoopHandler struct {
	svc          LoopService
	health       HealthService
	promeMetrics *metrics
	validate     *validator.Validate
	trans        ut.Translator
	log          *zap.Logger
}

func LoopRouter(r *chi.Mux, svc LoopService, health HealthService, m *metrics, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	handler := &LoopHandler{svc: svc, health: health, promeMetrics: m, validate: validate, trans: trans, log: log}

	r.Group(func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Post("/loops", handler.planLoop)
			r.Get("/health", handler.healthCheck)
		})
	})
}

var plannedLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// PlanLoopRequest model info
//
//	@Description	request body for planning a wind-optimized loop. Either start_address or start_lat and start_lon is required.
type PlanLoopRequest struct {
	StartAddress    string   `json:"start_address" validate:"required_without_all=StartLat StartLon,max=300"`
	StartLat        *float64 `json:"start_lat" validate:"omitempty,gte=-90,lte=90"`
	StartLon        *float64 `json:"start_lon" validate:"omitempty,gte=-180,lte=180"`
	DistanceKm      float64  `json:"distance_km" validate:"required,gt=5,lte=200"`
	Tolerance       float64  `json:"tolerance" validate:"omitempty,gt=0,lte=0.5"`
	PlannedDatetime string   `json:"planned_datetime,omitempty"`
	Debug           bool     `json:"debug"`

	plannedAt *time.Time
}

func (s *PlanLoopRequest) Bind(r *http.Request) error {
	if (s.StartLat == nil) != (s.StartLon == nil) {
		return errors.New("start_lat and start_lon must be given together")
	}
	s.StartAddress = strings.TrimSpace(s.StartAddress)
	if s.PlannedDatetime == "" {
		return nil
	}
	for _, layout := range plannedLayouts {
		if t, err := time.ParseInLocation(layout, s.PlannedDatetime, time.UTC); err == nil {
			s.plannedAt = &t
			return nil
		}
	}
	return fmt.Errorf("planned_datetime %q is not an ISO 8601 date time", s.PlannedDatetime)
}

// planLoop
//
//	@Summary		plan a wind-optimized circular route over the cycling junction network.
//	@Description	geocodes the start (unless coordinates are given), fetches current or forecast wind and returns the loop with the lowest wind effort close to the requested distance.
//	@Tags			loops
//	@Param			body	body	PlanLoopRequest	true	"request body for loop planning"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/loops [post]
//	@Success		200	{object}	datastructure.RouteResult
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
//	@Failure		503	{object}	ErrResponse
func (h *LoopHandler) planLoop(w http.ResponseWriter, r *http.Request) {
	data := &PlanLoopRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := h.validate.Struct(*data); err != nil {
		vv := translateError(err, h.trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	if h.promeMetrics != nil {
		h.promeMetrics.LoopQueryCount.WithLabelValues(fmt.Sprint(data.plannedAt != nil)).Inc()
	}
	res, err := h.svc.PlanLoop(r.Context(), service.LoopRequest{
		StartAddress: data.StartAddress,
		StartLat:     data.StartLat,
		StartLon:     data.StartLon,
		DistanceKm:   data.DistanceKm,
		Tolerance:    data.Tolerance,
		PlannedAt:    data.plannedAt,
		Debug:        data.Debug,
	})
	if err != nil {
		if getStatusCode(err) == http.StatusInternalServerError {
			h.log.Error("loop planning failed", zap.Error(errors.Unwrap(err)), zap.String("msg", err.Error()))
		}
		render.Render(w, r, ErrChi(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, res)
}

// healthCheck
//
//	@Summary		routing graph status.
//	@Tags			health
//	@Produce		application/json
//	@Router			/health [get]
//	@Success		200	{object}	graphmanager.Health
func (h *LoopHandler) healthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, h.health.Health(r.Context()))
}

type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrChi(err error) render.Renderer {
	statusText := ""
	switch getStatusCode(err) {
	case http.StatusNotFound:
		statusText = "Resource not found."
	case http.StatusInternalServerError:
		statusText = "Internal server error."
	case http.StatusServiceUnavailable:
		statusText = "Service unavailable."
	case http.StatusBadRequest:
		statusText = "Bad request."
	default:
		statusText = "Error."
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: getStatusCode(err),
		StatusText:     statusText,
		ErrorText:      err.Error(),
	}
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ierr *server.Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError
	}
	switch ierr.Code() {
	case server.ErrAddressNotGeocodable, server.ErrNoNetworkNearPoint, server.ErrTooFewJunctions, server.ErrNoLoopFound:
		return http.StatusNotFound
	case server.ErrBadParamInput:
		return http.StatusBadRequest
	case server.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}
