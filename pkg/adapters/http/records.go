package http

import (
	"context"
	"io"
	"net/http"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/go-chi/chi/v5"
)

func (s *Server) record(w http.ResponseWriter, r *http.Request) (*reactive.Record, bool) {
	rec, err := s.Engine.Catalog().Record(requestContext(r), shardOf(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return rec, true
}

// ListRecords handles GET /records.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Engine.Catalog().Records())
}

// GetRecord handles GET /records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	var snapshot map[string]any
	_ = s.Engine.View(func() error {
		snapshot = rec.Snapshot()
		return nil
	})
	s.writeJSON(w, snapshot)
}

// PutField handles PUT /records/{id}/{key}. The body is the JSON value.
func (s *Server) PutField(w http.ResponseWriter, r *http.Request) {
	var value any
	if err := decodeBody(r, &value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeField(w, r, chi.URLParam(r, "key"), value)
}

// DeleteField handles DELETE /records/{id}/{key}, writing nil to the key.
func (s *Server) DeleteField(w http.ResponseWriter, r *http.Request) {
	s.writeField(w, r, chi.URLParam(r, "key"), nil)
}

func (s *Server) writeField(w http.ResponseWriter, r *http.Request, key string, value any) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	err := s.Engine.Mutate(requestContext(r), rec.Shard(), func(context.Context) error {
		return rec.Write(key, value)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchRecord handles PATCH /records/{id} with a JSON merge patch. Changed keys are
// written one by one in key order; a failure leaves earlier keys written.
func (s *Server) PatchRecord(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, ok := s.record(w, r)
	if !ok {
		return
	}

	var snapshot map[string]any
	err = s.Engine.Mutate(requestContext(r), rec.Shard(), func(context.Context) error {
		next, err := patchDocument(rec.Snapshot(), patch)
		if err != nil {
			return err
		}
		delta := domain.DiffAttributes(rec.Snapshot(), next)
		for _, key := range delta.Keys() {
			if err := rec.Write(key, delta[key]); err != nil {
				return err
			}
		}
		snapshot = rec.Snapshot()
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, snapshot)
}
