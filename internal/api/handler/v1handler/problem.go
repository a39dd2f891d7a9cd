package v1handler

import (
	"maps"
	"net/http"
	"slices"

	"github.com/go-faster/jx"
)

// ProblemContentType is the media type of every error body.
const ProblemContentType = "application/problem+json"

// Problem titles returned to clients verbatim.
const (
	TitleValidation = "Validation failed"
	TitleMessaging  = "Message broker error."
	TitleInternal   = "An unexpected error occurred."
	TitleNotFound   = "Resource not found."
	TitleTimeout    = "Request timed out."
)

// Problem is an RFC 7807 style error body. Errors is only written when it has
// entries.
type Problem struct {
	Status int
	Title  string
	Errors map[string][]string
}

// Encode writes p as JSON. Field keys are sorted.
func (p Problem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str("about:blank")
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("status")
	e.Int(p.Status)
	if len(p.Errors) > 0 {
		e.FieldStart("errors")
		e.ObjStart()
		for _, field := range slices.Sorted(maps.Keys(p.Errors)) {
			e.FieldStart(field)
			e.ArrStart()
			for _, msg := range p.Errors[field] {
				e.Str(msg)
			}
			e.ArrEnd()
		}
		e.ObjEnd()
	}
	e.ObjEnd()
}

// WriteProblem answers with p.
func WriteProblem(w http.ResponseWriter, p *Problem) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	p.Encode(e)

	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(p.Status)
	_, _ = w.Write(e.Bytes())
}
