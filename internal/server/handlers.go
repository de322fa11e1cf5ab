package server

import (
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vpc-visualizer/internal/cache"
	"vpc-visualizer/internal/codec"
	vverrors "vpc-visualizer/internal/errors"
	"vpc-visualizer/internal/parser"
	"vpc-visualizer/internal/runner"
)

// Cache lookup results recorded in metrics.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

// handleSecurityGroups serves the graph of the live batch, from the cache
// when a fresh copy is stored.
func (s *Server) handleSecurityGroups(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.opts.Tracer.Start(r.Context(), "GET /api/v1/security-groups")
	defer span.End()

	if s.opts.Source == nil {
		writeError(w, vverrors.New(vverrors.KindInternal, "live fetching is not configured"))
		return
	}

	key := cache.GraphKey(s.opts.Source.Region(), s.opts.Source.AccountIDs())
	span.SetAttributes(attribute.String("vpcviz.region", s.opts.Source.Region()))

	data, ok, err := s.opts.Cache.Get(ctx, key)
	switch {
	case err != nil:
		// A broken cache only costs a fetch.
		s.opts.Metrics.RecordCacheLookup(cacheError)
		s.opts.Logger.Warn("cache lookup failed", "id", RequestID(ctx), "error", err)
	case ok:
		s.opts.Metrics.RecordCacheLookup(cacheHit)
		span.SetAttributes(attribute.Bool("vpcviz.cache_hit", true))
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, data)
		return
	default:
		s.opts.Metrics.RecordCacheLookup(cacheMiss)
	}

	groups, err := s.opts.Source.SecurityGroups(ctx)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	data, err = s.buildAndEncode(span, groups)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	if err := s.opts.Cache.Set(ctx, key, data, s.opts.CacheTTL); err != nil {
		s.opts.Logger.Warn("cache store failed", "id", RequestID(ctx), "error", err)
	}

	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, data)
}

// handleGraph builds the graph of the security groups posted in the body.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	_, span := s.opts.Tracer.Start(r.Context(), "POST /api/v1/graph")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, span, vverrors.Wrap(vverrors.KindDecode, err, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.fail(w, span, vverrors.Wrap(vverrors.KindDecode, err, "failed to read request body"))
		return
	}

	groups, err := parser.ParseFromData(body)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	data, err := s.buildAndEncode(span, groups)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) buildAndEncode(span trace.Span, groups []parser.SecurityGroup) ([]byte, error) {
	span.SetAttributes(attribute.Int("vpcviz.security_groups", len(groups)))

	g, err := runner.Build(groups, s.opts.Metrics)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("vpcviz.nodes", len(g.Nodes)),
		attribute.Int("vpcviz.edges", len(g.Edges)),
	)

	data, err := codec.Encode(g)
	if err != nil {
		return nil, vverrors.Wrap(vverrors.KindInternal, err, "failed to encode graph")
	}
	return data, nil
}

func (s *Server) fail(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(vverrors.KindOf(err)))
	s.opts.Logger.Error("request failed", "error", err)
	writeError(w, err)
}
