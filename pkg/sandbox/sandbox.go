// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package sandbox implements an in-process execution engine: the
// archive's sync.wasm module is loaded into an isolated VM and run under
// a narrow host-function ABI bounded by an allowlist and a timeout.
//
// Grounded on orbas1-Synnergy's HeavyVM (synnergy-network/core/virtual_machine.go),
// the only wasmer-go consumer in the example pack, adapted from its
// single-purpose "env" gas/storage ABI to this spec's "host"
// payload/HTTP ABI. The VM-selection and vault-commit orchestration
// follow original_source's sync-wasm-engine/src/runner.rs.
package sandbox

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/koh0920/syncarchive/pkg/archive"
)

// RunResult is the outcome of a single guest execution.
type RunResult struct {
	PayloadUpdated bool
	UpdatedPayload []byte
}

// Runner owns the wasmer engine shared across executions.
type Runner struct {
	engine     *wasmer.Engine
	httpClient *http.Client
}

// NewRunner constructs a Runner with a fresh wasmer engine and a 30-second
// brokered-HTTP client, matching the fixed external-request deadline.
func NewRunner() *Runner {
	return &Runner{
		engine:     wasmer.NewEngine(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run instantiates wasmBytes, seeds the host-owned payload buffer, and
// calls whichever of "run"/"_start" is exported, per the entry-point
// resolution order. The call is bounded by timeout; a guest that doesn't
// return in time yields a timeout error (the background goroutine is
// abandoned — wasmer-go has no public interrupt hook short of epoch
// interruption, which is not yet wired here).
func (r *Runner) Run(wasmBytes, payload []byte, allowedHosts []string, timeout time.Duration) (*RunResult, error) {
	store := wasmer.NewStore(r.engine)
	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("sandbox: compiling module: %w", err)
	}

	state := &hostState{
		payload:      append([]byte(nil), payload...),
		allowedHosts: allowedHosts,
		httpClient:   r.httpClient,
	}
	imports := registerHostFunctions(store, state)

	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, fmt.Errorf("sandbox: instantiating module: %w", err)
	}

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("sandbox: module has no exported memory: %w", err)
	}
	state.memory = mem

	entry, err := instance.Exports.GetFunction("run")
	if err != nil {
		entry, err = instance.Exports.GetFunction("_start")
		if err != nil {
			return nil, fmt.Errorf("sandbox: module exports neither \"run\" nor \"_start\"")
		}
	}

	done := make(chan error, 1)
	go func() {
		_, callErr := entry()
		done <- callErr
	}()

	select {
	case callErr := <-done:
		if callErr != nil {
			return nil, fmt.Errorf("sandbox: guest trapped: %w", callErr)
		}
	case <-time.After(timeout):
		return nil, fmt.Errorf("sandbox: guest execution timed out after %s", timeout)
	}

	result := &RunResult{}
	if state.updatedPayload != nil {
		result.PayloadUpdated = true
		result.UpdatedPayload = state.updatedPayload
	}
	return result, nil
}

// ExecuteOptions configures a full Execute call against an archive.
type ExecuteOptions struct {
	AllowedHosts    []string
	Timeout         time.Duration
	VaultPassphrase string
}

// Execute reads an archive's module and payload, runs it, and — if the
// guest produced an updated payload — commits it back to the archive
// atomically, per the vault-handling and result-commit rules below.
func Execute(a *archive.Archive, runner *Runner, opts ExecuteOptions) (*RunResult, error) {
	wasmBytes, err := a.ReadEntry(archive.WasmEntry)
	if err != nil {
		return nil, fmt.Errorf("sandbox: reading module: %w", err)
	}

	var payload []byte
	if a.IsVault() {
		if opts.VaultPassphrase == "" {
			return nil, fmt.Errorf("sandbox: vault archive requires a passphrase")
		}
		payload, err = a.ReadPayloadWithPassword(opts.VaultPassphrase)
	} else {
		payload, err = a.ReadPayload()
	}
	if err != nil {
		return nil, fmt.Errorf("sandbox: reading payload: %w", err)
	}

	result, err := runner.Run(wasmBytes, payload, opts.AllowedHosts, opts.Timeout)
	if err != nil {
		return nil, err
	}

	if result.PayloadUpdated {
		if a.IsVault() {
			err = a.WritePayloadWithPassword(result.UpdatedPayload, opts.VaultPassphrase)
		} else {
			err = a.UpdatePayload(result.UpdatedPayload)
		}
		if err != nil {
			return nil, fmt.Errorf("sandbox: committing updated payload: %w", err)
		}
	}
	return result, nil
}
