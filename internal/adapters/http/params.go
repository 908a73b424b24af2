package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"lumen/internal/ports"
)

func pathID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", badRequest{msg: err.Error()}
	}
	return id, nil
}

func queryParam[T any](r *http.Request, name string, dst *T) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst); err != nil {
		return badRequest{msg: err.Error()}
	}
	return nil
}

func listOptions(r *http.Request) (ports.ListOptions, error) {
	var opts ports.ListOptions
	if err := queryParam(r, "q", &opts.Query); err != nil {
		return opts, err
	}
	if err := queryParam(r, "limit", &opts.Limit); err != nil {
		return opts, err
	}
	if err := queryParam(r, "offset", &opts.Offset); err != nil {
		return opts, err
	}
	return opts, nil
}

// anchorTime reads the optional at=<RFC3339> anchor; zero means now.
func anchorTime(r *http.Request) (time.Time, error) {
	var at time.Time
	if err := queryParam(r, "at", &at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}
