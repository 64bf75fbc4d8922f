package api

import (
	"context"
	"errors"

	"github.com/absmach/colearn/coordinator"
	pkgerrors "github.com/absmach/colearn/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func registerAgentEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(agentReq)
		if !ok {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if !svc.RegisterAgent(ctx, req.Agent) {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		a, err := svc.GetAgent(ctx, req.ID)
		if err != nil {
			return agentResponse{}, err
		}

		return agentResponse{
			Agent:      a,
			registered: true,
		}, nil
	}
}

func getAgentEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		a, err := svc.GetAgent(ctx, req.id)
		if err != nil {
			return agentResponse{}, err
		}

		return agentResponse{
			Agent: a,
		}, nil
	}
}

func listAgentsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listAgentsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listAgentsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListAgents(ctx, req.offset, req.limit)
		if err != nil {
			return listAgentsResponse{}, err
		}

		return listAgentsResponse{
			AgentPage: page,
		}, nil
	}
}

func createRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.CreateRound(ctx, req.RoundSpec)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{
			LearningRound: r,
			created:       true,
		}, nil
	}
}

func getRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.GetRound(ctx, req.id)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{
			LearningRound: r,
		}, nil
	}
}

func listRoundsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.offset, req.limit)
		if err != nil {
			return listRoundsResponse{}, err
		}

		return listRoundsResponse{
			RoundPage: page,
		}, nil
	}
}

func submitUpdateEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(updateReq)
		if !ok {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		u, err := svc.SubmitUpdate(ctx, req.Submission)
		if err != nil {
			return updateResponse{}, err
		}

		return updateResponse{
			ModelUpdate: u,
			created:     true,
		}, nil
	}
}

func listUpdatesEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listUpdatesReq)
		if !ok {
			return listUpdatesResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listUpdatesResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListUpdates(ctx, req.roundID, req.offset, req.limit)
		if err != nil {
			return listUpdatesResponse{}, err
		}

		return listUpdatesResponse{
			UpdatePage: page,
		}, nil
	}
}

func aggregateRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		res, err := svc.AggregateRound(ctx, req.id)
		if err != nil {
			return resultResponse{}, err
		}

		return resultResponse{
			AggregationResult: res,
		}, nil
	}
}

func getResultEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		res, err := svc.GetResult(ctx, req.id)
		if err != nil {
			return resultResponse{}, err
		}

		return resultResponse{
			AggregationResult: res,
		}, nil
	}
}

func getDetectionEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return detectionResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return detectionResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		det, err := svc.GetDetection(ctx, req.id)
		if err != nil {
			return detectionResponse{}, err
		}

		return detectionResponse{
			DetectionResult: det,
		}, nil
	}
}

func metricsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		m, err := svc.Metrics(ctx)
		if err != nil {
			return metricsResponse{}, err
		}

		return metricsResponse{
			Metrics: m,
		}, nil
	}
}
