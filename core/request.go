package core

// UserInputRequest is the RequestInfo payload emitted by the Handoff topology
// when an interactive participant awaits a reply from the user.
type UserInputRequest struct {
	Participant string `json:"participant"`
	// Conversation is a snapshot taken at the suspension point.
	Conversation Conversation `json:"conversation"`
}

// UserInput answers a UserInputRequest. A plain string is accepted as well.
type UserInput struct {
	Text string `json:"text"`
}

// NewUserInput is a convenience constructor mirroring PlanReviewRequest's helpers.
func NewUserInput(text string) UserInput { return UserInput{Text: text} }

// ProgressLedger tracks Magentic planning health for one run. It is mutated
// only by the manager step of the orchestrator.
type ProgressLedger struct {
	RoundCount int `json:"round_count"`
	StallCount int `json:"stall_count"`
	ResetCount int `json:"reset_count"`
}

// PlanReviewRequest is the RequestInfo payload of the Magentic plan review gate.
type PlanReviewRequest struct {
	Plan     string         `json:"plan"`
	Progress ProgressLedger `json:"progress"`
}

// Approve builds a response accepting the proposed plan.
func (PlanReviewRequest) Approve() PlanReviewResponse { return PlanReviewResponse{Approved: true} }

// Revise builds a response asking the manager to incorporate feedback.
func (PlanReviewRequest) Revise(feedback string) PlanReviewResponse {
	return PlanReviewResponse{Revision: feedback}
}

// PlanReviewResponse answers a PlanReviewRequest: either Approved or a
// non-empty Revision.
type PlanReviewResponse struct {
	Approved bool   `json:"approved"`
	Revision string `json:"revision,omitempty"`
}
