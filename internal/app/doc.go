// Package app contains the launcher host process. It loads configuration,
// brings up the control server and the message bus, wires the startup
// sequence to its collaborators and keeps the process alive until the
// user quits, decoupled from any specific entrypoint like a CLI.
package app
