// Package core provides the foundational domain types and contracts shared by
// every orchestration topology in agentweave. It defines:
//
//   - Messages and Conversations (append-only, value typed transcripts)
//   - Events (closed set of tagged variants streamed to callers)
//   - The Participant capability (opaque responder invoked by orchestrators)
//   - Injected pure-function contracts: TerminationCondition, SpeakerSelector
//   - The Magentic Manager contract and its ProgressLedger
//   - Request payloads exchanged over the suspend/resume channel
//   - The error taxonomy (configuration, routing, stall exhaustion, participant)
//
// The package keeps execution concerns (state machines, run registry, model
// transports) out of scope so orchestrators and adapters can depend on it
// without cycles.
package core
