// Package manager owns the native inference resources and serializes access
// to them. It is structured into small files by concern:
//
//   - manager.go: Manager type, constructor, state getters.
//   - config.go: ManagerConfig and package defaults.
//   - types.go: State, InitParams, Snapshot.
//   - errors.go: typed errors and Is* helpers.
//   - resources.go: owned handles and their ordered release.
//   - initialize.go: Initialize state machine.
//   - shutdown.go: Shutdown.
//   - admission.go: single in-flight slot plus bounded queue.
//   - generate.go: Generate entry point.
//   - status_report.go, sanity.go: Status/Snapshot/SanityCheck.
//
// The real llama.cpp backend is compiled with `-tags=llama`; without it the
// backend from llm.NewLlamaBackend fails every model load.
package manager
