package orchestration

import (
	"sort"

	"github.com/hupe1980/agentweave/core"
)

// pendingSet holds the unanswered requests of the current suspension point,
// keyed by request id. It is owned by a Workflow and guarded by its mutex.
type pendingSet struct {
	byID map[string]core.RequestInfo
}

func newPendingSet() *pendingSet {
	return &pendingSet{byID: make(map[string]core.RequestInfo)}
}

func (s *pendingSet) add(req core.RequestInfo) { s.byID[req.RequestID] = req }

func (s *pendingSet) len() int { return len(s.byID) }

func (s *pendingSet) clear() { s.byID = make(map[string]core.RequestInfo) }

func (s *pendingSet) ids() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *pendingSet) requests() []core.RequestInfo {
	ids := s.ids()
	reqs := make([]core.RequestInfo, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, s.byID[id])
	}
	return reqs
}

// validate checks responses against the pending requests without modifying
// the set. On success it returns the responses normalized to their canonical
// types (core.UserInput or core.PlanReviewResponse).
func (s *pendingSet) validate(responses map[string]any) (map[string]any, error) {
	for _, id := range s.ids() {
		if _, ok := responses[id]; !ok {
			return nil, core.NewConfigurationError("resume", core.ErrInvalidResponses, "missing response for pending request %s", id)
		}
	}

	normalized := make(map[string]any, len(responses))
	for id, value := range responses {
		req, ok := s.byID[id]
		if !ok {
			return nil, core.NewConfigurationError("resume", core.ErrInvalidResponses, "request %s is not pending", id)
		}
		v, err := normalizeResponse(req, value)
		if err != nil {
			return nil, err
		}
		normalized[id] = v
	}

	return normalized, nil
}

func normalizeResponse(req core.RequestInfo, value any) (any, error) {
	switch req.Payload.(type) {
	case core.UserInputRequest:
		switch v := value.(type) {
		case core.UserInput:
			return v, nil
		case *core.UserInput:
			if v != nil {
				return *v, nil
			}
		case string:
			return core.UserInput{Text: v}, nil
		}
	case core.PlanReviewRequest:
		var resp core.PlanReviewResponse
		switch v := value.(type) {
		case core.PlanReviewResponse:
			resp = v
		case *core.PlanReviewResponse:
			if v == nil {
				break
			}
			resp = *v
		default:
			return nil, core.NewConfigurationError("resume", core.ErrInvalidResponses,
				"request %s expects a plan review response, got %T", req.RequestID, value)
		}
		if !resp.Approved && resp.Revision == "" {
			return nil, core.NewConfigurationError("resume", core.ErrInvalidResponses,
				"request %s: plan review must approve or carry a revision", req.RequestID)
		}
		return resp, nil
	default:
		return value, nil
	}

	return nil, core.NewConfigurationError("resume", core.ErrInvalidResponses,
		"request %s expects user input, got %T", req.RequestID, value)
}
