// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package sandbox

import (
	"io"
	"net/http"
	"net/url"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/koh0920/syncarchive/pkg/policy"
)

// hostState is the state shared between the host and one guest call:
// exclusively owned by the run while it's in progress, per the
// "ownership of the payload buffer" note.
type hostState struct {
	memory *wasmer.Memory

	payload        []byte
	updatedPayload []byte // nil until the guest calls payload_write
	lastResponse   []byte

	allowedHosts []string
	httpClient   *http.Client
}

func (h *hostState) read(ptr, length int32) []byte {
	data := h.memory.Data()
	if ptr < 0 || length < 0 || int(ptr)+int(length) > len(data) {
		return nil
	}
	out := make([]byte, length)
	copy(out, data[ptr:int(ptr)+int(length)])
	return out
}

func (h *hostState) write(ptr int32, data []byte) bool {
	mem := h.memory.Data()
	if ptr < 0 || int(ptr)+len(data) > len(mem) {
		return false
	}
	copy(mem[ptr:], data)
	return true
}

// registerHostFunctions builds the "host" namespace import object:
// brokered HTTP plus payload and response buffer access, all taking raw
// pointer/length pairs into the guest's linear memory.
func registerHostFunctions(store *wasmer.Store, state *hostState) *wasmer.ImportObject {
	i32 := wasmer.NewValueTypes(wasmer.I32)
	i32x2 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32)
	i32x3 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32)
	i32x4 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32)

	httpRequest := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32x4, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			urlBytes := state.read(args[0].I32(), args[1].I32())
			_ = state.read(args[2].I32(), args[3].I32()) // method: GET only is brokered
			if urlBytes == nil {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			status := state.brokeredGet(string(urlBytes))
			return []wasmer.Value{wasmer.NewI32(status)}, nil
		})

	lastResponseSize := wasmer.NewFunction(store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(len(state.lastResponse)))}, nil
		})

	lastResponseRead := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32x2, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			outPtr, maxLen := args[0].I32(), args[1].I32()
			n := int32(len(state.lastResponse))
			if n > maxLen {
				n = maxLen
			}
			if !state.write(outPtr, state.lastResponse[:n]) {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(n)}, nil
		})

	payloadSize := wasmer.NewFunction(store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(len(state.payload)))}, nil
		})

	payloadRead := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32x3, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			offset, length, outPtr := int(args[0].I32()), int(args[1].I32()), args[2].I32()
			if offset < 0 || offset >= len(state.payload) {
				return []wasmer.Value{wasmer.NewI32(0)}, nil
			}
			end := offset + length
			if end > len(state.payload) {
				end = len(state.payload)
			}
			chunk := state.payload[offset:end]
			if !state.write(outPtr, chunk) {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(int32(len(chunk)))}, nil
		})

	payloadWrite := wasmer.NewFunction(store,
		wasmer.NewFunctionType(i32x3, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			offset, length, dataPtr := int(args[0].I32()), int(args[1].I32()), args[2].I32()
			data := state.read(dataPtr, int32(length))
			if data == nil {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			if state.updatedPayload == nil {
				state.updatedPayload = append([]byte(nil), state.payload...)
			}
			if needed := offset + len(data); needed > len(state.updatedPayload) {
				grown := make([]byte, needed)
				copy(grown, state.updatedPayload)
				state.updatedPayload = grown
			}
			copy(state.updatedPayload[offset:], data)
			return []wasmer.Value{wasmer.NewI32(int32(len(data)))}, nil
		})

	imports := wasmer.NewImportObject()
	imports.Register("host", map[string]wasmer.IntoExtern{
		"http_request":       httpRequest,
		"last_response_size": lastResponseSize,
		"last_response_read": lastResponseRead,
		"payload_size":       payloadSize,
		"payload_read":       payloadRead,
		"payload_write":      payloadWrite,
	})
	return imports
}

// brokeredGet performs the allowlist-checked GET named in the
// http_request row, returning the HTTP status or a negative sentinel:
// -1 malformed URL, -2 host not allowed, -4 body read failure, -5
// request failure.
func (h *hostState) brokeredGet(rawURL string) int32 {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return -1
	}
	host := policy.HostFromURL(rawURL)
	if !policy.IsHostAllowed(host, h.allowedHosts) {
		return -2
	}
	resp, err := h.httpClient.Get(rawURL)
	if err != nil {
		return -5
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return -4
	}
	h.lastResponse = body
	return int32(resp.StatusCode)
}
