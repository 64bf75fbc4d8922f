package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Route("/agents", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			registerAgentEndpoint(svc),
			decodeAgentReq,
			api.EncodeResponse,
			opts...,
		), "register-agent").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listAgentsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-agents").ServeHTTP)
		r.Get("/{agentID}", otelhttp.NewHandler(kithttp.NewServer(
			getAgentEndpoint(svc),
			decodeEntityReq("agentID"),
			api.EncodeResponse,
			opts...,
		), "get-agent").ServeHTTP)
	})

	mux.Route("/rounds", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createRoundEndpoint(svc),
			decodeRoundReq,
			api.EncodeResponse,
			opts...,
		), "create-round").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRoundsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-rounds").ServeHTTP)
		r.Route("/{roundID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getRoundEndpoint(svc),
				decodeEntityReq("roundID"),
				api.EncodeResponse,
				opts...,
			), "get-round").ServeHTTP)
			r.Post("/updates", otelhttp.NewHandler(kithttp.NewServer(
				submitUpdateEndpoint(svc),
				decodeUpdateReq,
				api.EncodeResponse,
				opts...,
			), "submit-update").ServeHTTP)
			r.Post("/updates_cbor", otelhttp.NewHandler(kithttp.NewServer(
				submitUpdateEndpoint(svc),
				decodeUpdateCBORReq,
				api.EncodeResponse,
				opts...,
			), "submit-update-cbor").ServeHTTP)
			r.Get("/updates", otelhttp.NewHandler(kithttp.NewServer(
				listUpdatesEndpoint(svc),
				decodeListUpdatesReq,
				api.EncodeResponse,
				opts...,
			), "list-updates").ServeHTTP)
			r.Post("/aggregate", otelhttp.NewHandler(kithttp.NewServer(
				aggregateRoundEndpoint(svc),
				decodeEntityReq("roundID"),
				api.EncodeResponse,
				opts...,
			), "aggregate-round").ServeHTTP)
			r.Get("/result", otelhttp.NewHandler(kithttp.NewServer(
				getResultEndpoint(svc),
				decodeEntityReq("roundID"),
				api.EncodeResponse,
				opts...,
			), "get-result").ServeHTTP)
			r.Get("/detection", otelhttp.NewHandler(kithttp.NewServer(
				getDetectionEndpoint(svc),
				decodeEntityReq("roundID"),
				api.EncodeResponse,
				opts...,
			), "get-detection").ServeHTTP)
		})
	})

	mux.Get("/stats", otelhttp.NewHandler(kithttp.NewServer(
		metricsEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "stats").ServeHTTP)

	mux.Get("/health", supermq.Health("coordinator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}

func decodeAgentReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req agentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeRoundReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req roundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeUpdateReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	req.RoundID = chi.URLParam(r, "roundID")

	return req, nil
}

// Constrained agents submit updates in CBOR to avoid the JSON encoding
// overhead on large weight structures.
func decodeUpdateCBORReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentTypeCBOR) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req updateReq
	if err := cbor.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	req.RoundID = chi.URLParam(r, "roundID")

	return req, nil
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeListUpdatesReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listUpdatesReq{
		roundID: chi.URLParam(r, "roundID"),
		offset:  o,
		limit:   l,
	}, nil
}
