package tapkeeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/taptarget/kit"
	"github.com/hazyhaar/taptarget/tapaudit"
)

// errInvalid marks caller mistakes; the HTTP layer answers 400.
var errInvalid = errors.New("invalid request")

type evaluateRequest struct {
	PageURL   string             `json:"page_url"`
	Artifacts tapaudit.Artifacts `json:"artifacts"`
}

type auditURLRequest struct {
	URL string `json:"url"`
}

type getRunRequest struct {
	ID string `json:"id"`
}

type listRunsRequest struct {
	PageURL string `json:"page_url,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type statsRequest struct{}

// Endpoints shared by the MCP, connectivity and HTTP surfaces. Each takes a
// pointer to its request type.

func (k *Keeper) evaluateEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*evaluateRequest)
		if r.PageURL == "" {
			return nil, fmt.Errorf("%w: page_url is required", errInvalid)
		}
		return k.Evaluate(ctx, r.PageURL, r.Artifacts)
	}
}

func (k *Keeper) auditURLEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*auditURLRequest)
		if r.URL == "" {
			return nil, fmt.Errorf("%w: url is required", errInvalid)
		}
		return k.AuditURL(ctx, r.URL)
	}
}

func (k *Keeper) getRunEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*getRunRequest)
		if r.ID == "" {
			return nil, fmt.Errorf("%w: id is required", errInvalid)
		}
		return k.GetRun(ctx, r.ID)
	}
}

func (k *Keeper) listRunsEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*listRunsRequest)
		runs, err := k.ListRuns(ctx, r.PageURL, r.Limit)
		if err != nil {
			return nil, err
		}
		if runs == nil {
			runs = []*RunSummary{}
		}
		return runs, nil
	}
}

func (k *Keeper) statsEndpoint() kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		return k.Stats(ctx)
	}
}
