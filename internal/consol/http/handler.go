package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/benchline-erp/benchline/internal/consol"
	"github.com/benchline-erp/benchline/internal/platform/httpx"
)

// Handler wires HTTP interactions for the consolidated reporting feature.
type Handler struct {
	logger    *slog.Logger
	service   *consol.Service
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the consolidated reports handler.
func NewHandler(logger *slog.Logger, service *consol.Service) *Handler {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		validate:  validator.New(),
		rateLimit: limiter,
	}
}

// Routes mounts the reporting endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/accounting/reports/consolidated-pl", h.consolidatedPL)
	})
}

type consolidatedPLRequest struct {
	EntityIDs []int64 `json:"entityIds" validate:"required,min=1,dive,gt=0"`
	StartDate string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string  `json:"endDate" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) consolidatedPL(w http.ResponseWriter, r *http.Request) {
	var req consolidatedPLRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)

	// Identical concurrent report requests share one build.
	value, err, _ := singleflightBuild(r.Context(), reportKey(req), func(ctx context.Context) (interface{}, error) {
		return h.service.TrialBalance(ctx, req.EntityIDs, start, end)
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	tb, ok := value.(consol.TrialBalanceResult)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, consol.BuildProfitLoss(tb))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var unbalanced *consol.UnbalancedConsolidationError
	var interco *consol.InterCompanyImbalanceError
	switch {
	case errors.Is(err, consol.ErrNoEntities), errors.Is(err, consol.ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &unbalanced):
		h.log().Error("consolidation integrity failure", slog.String("net", unbalanced.Net.String()))
		httpx.Problem(w, http.StatusInternalServerError, "Consolidation Integrity Failure", err.Error())
	case errors.As(err, &interco):
		h.log().Error("intercompany imbalance", slog.String("net", interco.Net.String()))
		httpx.Problem(w, http.StatusConflict, "Intercompany Imbalance", err.Error())
	default:
		h.log().Error("consolidated report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func reportKey(req consolidatedPLRequest) string {
	ids := make([]string, 0, len(req.EntityIDs))
	sorted := append([]int64(nil), req.EntityIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return "pl|" + strings.Join(ids, ",") + "|" + req.StartDate + "|" + req.EndDate
}

func (h *Handler) log() *slog.Logger {
	if h != nil && h.logger != nil {
		return h.logger.With(slog.String("component", "consol_http"))
	}
	return slog.Default().With(slog.String("component", "consol_http"))
}
