package engine

import (
	"encoding/json"
	"fmt"
	"io"

	serrors "simlink/internal/errors"
)

// ── Wire protocol ────────────────────────────────────────────────────
//
// Client and server exchange one JSON object per line.  Every request
// gets exactly one response; the connection is strictly request/reply.

// Operation names.
const (
	OpHello      = "hello"
	OpCreate     = "create"
	OpLoad       = "load"
	OpSave       = "save"
	OpRemove     = "remove"
	OpNames      = "names"
	OpDisconnect = "disconnect"
)

// Error codes carried in failed responses.
const (
	codeUnknownModel = "unknown_model"
	codeBadRequest   = "bad_request"
	codeFailed       = "failed"
)

// Request is a client → server message.
type Request struct {
	Op      string `json:"op"`
	Name    string `json:"name,omitempty"`
	Path    string `json:"path,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Cores   int    `json:"cores,omitempty"`
	Version string `json:"version,omitempty"`
}

// Response is a server → client message.
type Response struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Code    string   `json:"code,omitempty"`
	Model   *Model   `json:"model,omitempty"`
	Names   []string `json:"names,omitempty"`
	Cores   int      `json:"cores,omitempty"`
	Version string   `json:"version,omitempty"`
}

// Err converts a failed response back into an error.
func (r *Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Code == codeUnknownModel {
		return fmt.Errorf("%s: %w", r.Error, serrors.ErrUnknownModel)
	}
	return fmt.Errorf("engine: %s", r.Error)
}

func failure(err error) *Response {
	code := codeFailed
	if serrors.Is(err, serrors.ErrUnknownModel) {
		code = codeUnknownModel
	}
	return &Response{Error: err.Error(), Code: code}
}

// codec reads and writes protocol messages over one stream.
type codec struct {
	dec *json.Decoder
	enc *json.Encoder
}

func newCodec(rw io.ReadWriter) *codec {
	return &codec{dec: json.NewDecoder(rw), enc: json.NewEncoder(rw)}
}

func (c *codec) send(v interface{}) error { return c.enc.Encode(v) }

func (c *codec) recv(v interface{}) error { return c.dec.Decode(v) }
