// Package startup sequences the launcher from process start to a UI that
// may proceed: single-instance check, dependency extraction, session
// bootstrap, runtime check with its setup gate, account resolution and
// metadata sync.
//
// Every step talks to its collaborator through a small interface so the
// sequence can be driven with fakes. Progress is published through the
// store; the orchestrator is the only writer of the startup phase, the
// login-checking flag and the current account.
package startup
