package api

import (
	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/coordinator"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type agentReq struct {
	agent.Agent `json:",inline"`
}

func (a *agentReq) validate() error {
	if a.ID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type roundReq struct {
	coordinator.RoundSpec `json:",inline"`
}

func (r *roundReq) validate() error {
	if r.ModelID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type updateReq struct {
	coordinator.Submission `json:",inline"`
}

func (u *updateReq) validate() error {
	if u.AgentID == "" || u.RoundID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}

type listUpdatesReq struct {
	roundID       string
	offset, limit uint64
}

func (l *listUpdatesReq) validate() error {
	if l.roundID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}
