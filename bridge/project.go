package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

// Project maps a host failure for subject onto KindNotFound when the host
// reported hostfs.CodeNotFound, and onto KindOther for any other code or no
// code at all. Only the message and code survive.
func Project(subject string, err error) *errors.Error {
	if err == nil {
		return nil
	}
	wire := hostfs.ToWire(err)
	var projected *errors.Error
	if wire.Code == hostfs.CodeNotFound {
		projected = errors.NotFound(errors.PhaseHost, subject, wire.Message)
	} else {
		projected = errors.Other(errors.PhaseHost, subject, wire.Message)
	}
	projected.Code = wire.Code
	return projected
}

// ProjectPayload projects a raw JSON error record of the form
// {"message": string, "code"?: string}. A payload that does not decode into
// that shape breaks the host contract and panics.
func ProjectPayload(subject string, payload []byte) *errors.Error {
	var wire struct {
		Message *string `json:"message"`
		Code    *string `json:"code"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		panic(fmt.Sprintf("bridge: malformed host error payload: %v", err))
	}
	if wire.Message == nil {
		panic("bridge: host error payload has no message")
	}
	rec := &hostfs.Error{Message: *wire.Message}
	if wire.Code != nil {
		rec.Code = *wire.Code
	}
	return Project(subject, rec)
}
