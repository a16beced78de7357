package handler

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

type TemplOption = datastar.PatchElementOption

// WithTarget sets the CSS selector the patch applies to.
func WithTarget(selector string) TemplOption {
	return datastar.WithSelector(selector)
}

func WithPatchMode(mode datastar.ElementPatchMode) TemplOption {
	return datastar.WithMode(mode)
}

type TemplPatch struct {
	Component templ.Component
	Options   []TemplOption
}

func Patch(c templ.Component, opts ...TemplOption) TemplPatch {
	return TemplPatch{Component: c, Options: opts}
}

type templResponse struct {
	status  int
	patches []TemplPatch
}

// Render sends one element patch per component to Datastar clients and
// plain concatenated HTML to everyone else.
func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		sse := datastar.NewSSE(w, r)
		for _, p := range t.patches {
			if err := sse.PatchElementTempl(p.Component, p.Options...); err != nil {
				return err
			}
		}
		return nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if t.status != 0 {
		w.WriteHeader(t.status)
	}
	for _, p := range t.patches {
		if err := p.Component.Render(r.Context(), w); err != nil {
			return err
		}
	}
	return nil
}

func Templ(c templ.Component, opts ...TemplOption) Response {
	return templResponse{patches: []TemplPatch{Patch(c, opts...)}}
}

// TemplStatus renders c with a non 200 status for plain requests.
func TemplStatus(status int, c templ.Component) Response {
	return templResponse{status: status, patches: []TemplPatch{Patch(c)}}
}

func TemplMulti(patches ...TemplPatch) Response {
	return templResponse{patches: patches}
}
