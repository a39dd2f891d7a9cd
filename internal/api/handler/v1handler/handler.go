package v1handler

import (
	"bills/internal/billing"
	"bills/pkg/logger"
	"bills/pkg/serrors"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Deps are the services the v1 handlers call into.
type Deps struct {
	Billing billing.Billing
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Register mounts the v1 routes on r.
func (h Handler) Register(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/bills", h.ListBills)
	r.Post("/bills", h.CreateBill)
}

// NewError maps err to the problem answered to the client. Only messaging and
// infrastructure failures are logged as errors; their causes never reach the
// response.
func (h Handler) NewError(ctx context.Context, err error) *Problem {
	kind := serrors.KindOf(err)

	var serr *serrors.Error
	hasSemantic := errors.As(err, &serr)

	switch kind {
	case serrors.ErrValidation:
		logger.Debug(ctx, "request rejected", zap.Error(err))

		var fields map[string][]string
		if hasSemantic {
			fields = serr.Fields()
		}

		return &Problem{Status: http.StatusBadRequest, Title: TitleValidation, Errors: fields}
	case serrors.ErrConflict:
		logger.Debug(ctx, "request conflicts", zap.Error(err))

		title := "Conflict."
		if hasSemantic && serr.Message() != "" {
			title = serr.Message()
		}

		return &Problem{Status: http.StatusConflict, Title: title}
	case serrors.ErrNotFound:
		return &Problem{Status: http.StatusNotFound, Title: TitleNotFound}
	case serrors.ErrMessaging:
		logger.Error(ctx, "event publication failed", zap.Error(err))

		return &Problem{Status: http.StatusServiceUnavailable, Title: TitleMessaging}
	case serrors.ErrTimeout:
		logger.Error(ctx, "request timed out", zap.Error(err))

		return &Problem{Status: http.StatusGatewayTimeout, Title: TitleTimeout}
	default:
		logger.Error(ctx, err.Error())

		return &Problem{Status: http.StatusInternalServerError, Title: TitleInternal}
	}
}

func (h Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	WriteProblem(w, h.NewError(r.Context(), err))
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteProblem(w, &Problem{Status: http.StatusNotFound, Title: TitleNotFound})
}

// MethodNotAllowed answers with 405 and an Allow header listing allowed.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed []string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	WriteProblem(w, &Problem{
		Status: http.StatusMethodNotAllowed,
		Title:  fmt.Sprintf("Method '%s' is not allowed.", r.Method),
	})
}
