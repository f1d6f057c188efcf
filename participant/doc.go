// Package participant provides ready-made core.Participant implementations.
//
// Func and Stream adapt plain Go functions, which is handy for tests,
// deterministic pipeline steps and human proxies. ModelParticipant drives a
// language model through the model.Model interface; when it is given
// handoff targets it exposes the transfer_to_agent tool and turns a call to
// that tool into a handoff directive on its response.
package participant
