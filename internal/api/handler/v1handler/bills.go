package v1handler

import (
	"bills/pkg/serrors"
	"io"
	"net/http"

	"github.com/go-faster/jx"
)

// ServiceName is reported by the root endpoint.
const ServiceName = "bills-api"

// MaxBodyBytes bounds a create-bill request body.
const MaxBodyBytes = 1 << 20

// Root reports that the service is up.
func (h Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("service")
		e.Str(ServiceName)
		e.FieldStart("status")
		e.Str("ok")
		e.ObjEnd()
	})
}

// CreateBill validates, stores and announces the bill in the request body.
func (h Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		h.writeError(w, r, serrors.Invalid(
			map[string][]string{FieldRequest: {MsgInvalidJSON}},
			"could not read request body: %v", err))

		return
	}

	cmd, err := DecodeCreateBill(body)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	created, err := h.deps.Billing.Create(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		EncodeCreatedBill(e, created)
	})
}

// ListBills returns every bill ordered by id.
func (h Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Billing.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		EncodeBillSummaries(e, items)
	})
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
