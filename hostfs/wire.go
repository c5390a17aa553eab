package hostfs

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CodeNotFound is the canonical code a host reports for a missing path.
const CodeNotFound = "ENOENT"

// Metadata describes the kind of a filesystem entry.
type Metadata struct {
	IsFile      bool `json:"is_file"`
	IsDirectory bool `json:"is_directory"`
	IsSymlink   bool `json:"is_symlink"`
}

// DirEntry is one entry of a directory listing. Name is a single path
// component, never a full path.
type DirEntry struct {
	Name string `json:"name"`
	Metadata
}

// Error is the failure record a host reports.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// NotFound returns an Error carrying CodeNotFound.
func NotFound(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Code: CodeNotFound}
}

// ToWire converts any error into the wire record. Errors that already carry
// an *Error keep their code; anything else keeps only its message.
func ToWire(err error) *Error {
	if err == nil {
		return nil
	}
	var we *Error
	if stderrors.As(err, &we) {
		return we
	}
	return &Error{Message: err.Error()}
}

// envelope is the JSON shape used across linear memory.
type envelope struct {
	Ok  json.RawMessage `json:"ok,omitempty"`
	Err *Error          `json:"err,omitempty"`
}

// EncodeResult encodes a host call outcome as an envelope.
func EncodeResult(v any, err error) []byte {
	var env envelope
	if err != nil {
		env.Err = ToWire(err)
	} else {
		ok, merr := json.Marshal(v)
		if merr != nil {
			env.Err = &Error{Message: "encode result: " + merr.Error()}
		} else {
			env.Ok = ok
		}
	}
	data, _ := json.Marshal(env)
	return data
}

// DecodeResult decodes an envelope, storing the ok value in out or returning
// the host's *Error. A malformed envelope violates the host contract and
// panics.
func DecodeResult(data []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		panic(fmt.Sprintf("hostfs: malformed result envelope: %v", err))
	}
	if env.Err != nil {
		return env.Err
	}
	if len(env.Ok) == 0 {
		panic("hostfs: result envelope has neither ok nor err")
	}
	if err := json.Unmarshal(env.Ok, out); err != nil {
		panic(fmt.Sprintf("hostfs: malformed ok payload: %v", err))
	}
	return nil
}

// Lossy decodes bytes as UTF-8, replacing invalid sequences with U+FFFD.
func Lossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}
