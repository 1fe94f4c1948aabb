package tapkeeper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/taptarget/connectivity"
	"github.com/hazyhaar/taptarget/kit"
)

// RegisterConnectivity registers tapkeeper services on a connectivity Router.
//
// Registered services:
//
//	tapaudit_evaluate   audit artifacts collected elsewhere
//	tapaudit_audit_url  load a page in the browser and audit it
//	tapaudit_get_run    fetch a stored run by id
//	tapaudit_list_runs  list recent runs
//	tapaudit_stats      aggregate statistics
func (k *Keeper) RegisterConnectivity(router *connectivity.Router) {
	register := func(name string, h connectivity.Handler, extra ...connectivity.HandlerMiddleware) {
		mws := append([]connectivity.HandlerMiddleware{
			connectivity.Logging(k.logger, name),
			connectivity.Recovery(k.logger),
		}, extra...)
		router.RegisterLocal(name, connectivity.Chain(mws...)(h))
	}

	register("tapaudit_evaluate", localHandler[evaluateRequest](k.evaluateEndpoint()))
	// Page load plus script evaluation.
	register("tapaudit_audit_url", localHandler[auditURLRequest](k.auditURLEndpoint()),
		connectivity.Timeout(2*k.cfg.Browser.NavTimeout))
	register("tapaudit_get_run", localHandler[getRunRequest](k.getRunEndpoint()))
	register("tapaudit_list_runs", localHandler[listRunsRequest](k.listRunsEndpoint()))
	register("tapaudit_stats", localHandler[statsRequest](k.statsEndpoint()))
}

// localHandler adapts an endpoint to the bytes-in, bytes-out Handler shape.
// An empty payload decodes to the zero request.
func localHandler[T any](ep kit.Endpoint) connectivity.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
		}
		resp, err := ep(kit.WithTransport(ctx, kit.TransportLocal), &req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	}
}
