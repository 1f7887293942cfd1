package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tuneplane/internal/dispatch"
	"tuneplane/internal/experiment"
	"tuneplane/internal/optimizer"
	"tuneplane/internal/space"
	"tuneplane/pkg/api"
)

// InitExperiment handles POST /experiments.
// It parses the parameter space, builds the optimizer strategy and
// registers the experiment in the dispatcher.
func (h *Handlers) InitExperiment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.InitExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		h.httpError(w, "Name is required", http.StatusBadRequest)
		return
	}
	if len(req.ParamDefs) == 0 {
		h.httpError(w, "At least one param def is required", http.StatusBadRequest)
		return
	}

	sp, err := space.Parse(req.ParamDefs)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind, err := optimizer.ParseKind(req.Optimizer)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.dispatch.InitExperiment(ctx, dispatch.InitSpec{
		ID:           req.ExperimentID,
		Name:         req.Name,
		Minimization: req.Minimization,
		Space:        sp,
		Kind:         kind,
		Optimizer:    optimizerConfig(req.OptimizerParams),
	})
	if err != nil {
		if errors.Is(err, experiment.ErrDuplicateExperiment) {
			h.httpError(w, err.Error(), http.StatusConflict)
			return
		}
		// Everything else init can fail on is a bad optimizer config.
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.respondJson(w, http.StatusOK, api.InitExperimentResponse{ExperimentID: id})
}

// ListExperiments handles GET /experiments.
func (h *Handlers) ListExperiments(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, api.ListExperimentsResponse{
		ExperimentIDs: h.dispatch.ExperimentIDs(),
	})
}

// optimizerConfig overlays the request's tuning knobs on the defaults.
func optimizerConfig(p *api.OptimizerParams) optimizer.Config {
	cfg := optimizer.DefaultConfig()
	if p == nil {
		return cfg
	}
	if p.Seed != nil {
		cfg.Seed = *p.Seed
	}
	if p.WarmupSamples != nil {
		cfg.WarmupSamples = *p.WarmupSamples
	}
	if p.AcqCandidates != nil {
		cfg.AcqCandidates = *p.AcqCandidates
	}
	if p.Acquisition != "" {
		cfg.Acquisition = p.Acquisition
	}
	if p.TreatFailed != "" {
		cfg.TreatFailed = p.TreatFailed
	}
	if p.TreatFailedArg != nil {
		cfg.TreatFailedArg = *p.TreatFailedArg
	}
	return cfg
}
