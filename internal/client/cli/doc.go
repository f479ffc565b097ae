// Package cli provides the voicefeed command-line client.
//
// Every subcommand runs against one App, built in the root command's
// PersistentPreRunE from the layered configuration and a Connector (the
// remote gRPC backend by default). The App owns the active View; commands
// update it and the interactive shell shows it in its prompt.
//
// Commands:
//   - register, login, logout, whoami
//   - onboard: create or update the signed-in user's profile
//   - record: capture from the microphone (or --from a file) and publish
//   - upload <file>: publish an existing audio file
//   - feed [--watch]: print the feed once, or keep it live
//   - like <id>
//   - shell: keep a prompt open and run the commands above
//
// Failures are reported as a single toast line; see Toast.
package cli
