package httpadapter

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumen/internal/domain"
	"lumen/internal/ports"
	"lumen/internal/services/crm"
)

func (s *Server) getDashboardNow(w http.ResponseWriter, r *http.Request) {
	at, err := anchorTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.dashboards.Now(r.Context(), tenantID(r.Context()), at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) getDashboardHorizon(w http.ResponseWriter, r *http.Request) {
	at, err := anchorTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.dashboards.Horizon(r.Context(), tenantID(r.Context()), at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) getDashboardLandscape(w http.ResponseWriter, r *http.Request) {
	at, err := anchorTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.dashboards.Landscape(r.Context(), tenantID(r.Context()), at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type generateRequest struct {
	Query string `json:"query"`
}

type generateAccepted struct {
	JobID string `json:"jobId"`
}

func (s *Server) postReportGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	async := false
	if err := queryParam(r, "async", &async); err != nil {
		writeError(w, r, err)
		return
	}
	tenant := tenantID(r.Context())
	if async {
		jobID, err := s.reports.Enqueue(r.Context(), tenant, req.Query)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, generateAccepted{JobID: jobID})
		return
	}
	spec, err := s.reports.Generate(r.Context(), tenant, req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	spec, err := s.reports.Get(r.Context(), tenantID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) getReportJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.reports.JobStatus(r.Context(), tenantID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// resource mounts list, create, get, patch and delete routes for one record
// kind.
type resource[T any, In any] struct {
	create func(ctx context.Context, tenantID string, in In) (T, error)
	get    func(ctx context.Context, tenantID, id string) (T, error)
	list   func(ctx context.Context, tenantID string, opts ports.ListOptions) ([]T, error)
	update func(ctx context.Context, tenantID, id string, in In) (T, error)
	del    func(ctx context.Context, tenantID, id string) error
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func (res resource[T, In]) mount(r chi.Router, prefix string) {
	r.Route(prefix, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			opts, err := listOptions(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			items, err := res.list(r.Context(), tenantID(r.Context()), opts)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, listResponse[T]{Items: items})
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in In
			if err := decodeBody(w, r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			v, err := res.create(r.Context(), tenantID(r.Context()), in)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, v)
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			v, err := res.get(r.Context(), tenantID(r.Context()), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, v)
		})
		r.Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			var in In
			if err := decodeBody(w, r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			v, err := res.update(r.Context(), tenantID(r.Context()), id, in)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, v)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if err := res.del(r.Context(), tenantID(r.Context()), id); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.crm.ListActivities(r.Context(), tenantID(r.Context()), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Activity]{Items: items})
}

func (s *Server) postActivity(w http.ResponseWriter, r *http.Request) {
	var in crm.ActivityInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.crm.LogActivity(r.Context(), tenantID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.crm.ListStages(r.Context(), tenantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Stage]{Items: stages})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := queryParam(r, "q", &q); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.crm.Search(r.Context(), tenantID(r.Context()), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
