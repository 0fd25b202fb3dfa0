package http

import (
	"context"
	"net/http"

	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/go-chi/chi/v5"
)

// InsertRequest is the body of POST /sequences/{id}. A nil Offset appends.
type InsertRequest struct {
	Offset *int `json:"offset,omitempty"`
	Value  any  `json:"value"`
}

func (s *Server) sequence(w http.ResponseWriter, r *http.Request) (*reactive.Sequence, bool) {
	seq, err := s.Engine.Catalog().Sequence(requestContext(r), shardOf(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return seq, true
}

// ListSequences handles GET /sequences.
func (s *Server) ListSequences(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Engine.Catalog().Sequences())
}

// GetSequence handles GET /sequences/{id}.
func (s *Server) GetSequence(w http.ResponseWriter, r *http.Request) {
	seq, ok := s.sequence(w, r)
	if !ok {
		return
	}
	var elems []any
	_ = s.Engine.View(func() error {
		elems = seq.Snapshot()
		return nil
	})
	if elems == nil {
		elems = []any{}
	}
	s.writeJSON(w, elems)
}

// InsertElement handles POST /sequences/{id}.
func (s *Server) InsertElement(w http.ResponseWriter, r *http.Request) {
	var req InsertRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	seq, ok := s.sequence(w, r)
	if !ok {
		return
	}
	err := s.Engine.Mutate(requestContext(r), seq.Shard(), func(context.Context) error {
		if req.Offset == nil {
			return seq.Append(req.Value)
		}
		return seq.Insert(*req.Offset, req.Value)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// SetElement handles PUT /sequences/{id}/{offset}. The body is the JSON value.
func (s *Server) SetElement(w http.ResponseWriter, r *http.Request) {
	offset, err := offsetParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var value any
	if err := decodeBody(r, &value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	seq, ok := s.sequence(w, r)
	if !ok {
		return
	}
	err = s.Engine.Mutate(requestContext(r), seq.Shard(), func(context.Context) error {
		return seq.Set(offset, value)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveElement handles DELETE /sequences/{id}/{offset}.
func (s *Server) RemoveElement(w http.ResponseWriter, r *http.Request) {
	offset, err := offsetParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	seq, ok := s.sequence(w, r)
	if !ok {
		return
	}
	err = s.Engine.Mutate(requestContext(r), seq.Shard(), func(context.Context) error {
		return seq.Remove(offset)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
