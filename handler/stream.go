package handler

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

// Stream collects element patches, signal patches and an optional redirect
// and sends them over a single SSE response in the order they were added.
//
//	return handler.NewStream().
//		Signals(map[string]any{"busy": false}).
//		Element(views.Toast(msg), handler.WithTarget("#toasts"), handler.WithPatchMode(handler.PatchAppend))
type Stream struct {
	steps []func(*datastar.ServerSentEventGenerator) error
}

func NewStream() *Stream { return &Stream{} }

func (s *Stream) Element(c templ.Component, opts ...TemplOption) *Stream {
	s.steps = append(s.steps, func(sse *datastar.ServerSentEventGenerator) error {
		return sse.PatchElementTempl(c, opts...)
	})
	return s
}

// Signals merges v, marshaled to JSON, into the client signal store.
func (s *Stream) Signals(v any) *Stream {
	s.steps = append(s.steps, func(sse *datastar.ServerSentEventGenerator) error {
		return sse.MarshalAndPatchSignals(v)
	})
	return s
}

func (s *Stream) Redirect(url string) *Stream {
	s.steps = append(s.steps, func(sse *datastar.ServerSentEventGenerator) error {
		return sse.Redirect(url)
	})
	return s
}

// Len is the number of queued steps.
func (s *Stream) Len() int { return len(s.steps) }

func (s *Stream) Render(w http.ResponseWriter, r *http.Request) error {
	if !IsDataStar(r) {
		return NewHTTPError(http.StatusBadRequest, ErrNotDataStar.Error())
	}
	sse := datastar.NewSSE(w, r)
	for _, step := range s.steps {
		if err := step(sse); err != nil {
			return err
		}
	}
	return nil
}
