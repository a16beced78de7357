package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

const (
	// DataStarHeader is sent by the Datastar client on every backend action.
	DataStarHeader     = "Datastar-Request"
	dataStarAccept     = "text/event-stream"
	dataStarQueryParam = "datastar"
	maxBodyBytes       = 1 << 20
)

const (
	PatchOuter   = datastar.ElementPatchModeOuter
	PatchInner   = datastar.ElementPatchModeInner
	PatchReplace = datastar.ElementPatchModeReplace
	PatchRemove  = datastar.ElementPatchModeRemove
	PatchAppend  = datastar.ElementPatchModeAppend
	PatchPrepend = datastar.ElementPatchModePrepend
)

// IsDataStar reports whether r was issued by the Datastar client and
// expects an SSE answer.
func IsDataStar(r *http.Request) bool {
	if r.Header.Get(DataStarHeader) == "true" {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), dataStarAccept) {
		return true
	}
	return r.URL.Query().Has(dataStarQueryParam)
}

// BindSignals decodes the Datastar signal payload into v.
func BindSignals(r *http.Request, v any) error {
	if !IsDataStar(r) {
		return ErrBinderNotApplicable
	}
	if err := datastar.ReadSignals(r, v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

// BindJSON decodes a JSON request body into v.
func BindJSON(r *http.Request, v any) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return ErrBinderNotApplicable
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
