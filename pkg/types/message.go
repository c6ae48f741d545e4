package types

import "encoding/json"

// Call is one inbound method invocation on the bridge channel.
type Call struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Reply answers exactly one Call. Result and Error are mutually exclusive;
// a null Result with no Error is a valid outcome (user-cancelled purchase).
type Reply struct {
	ID     string     `json:"id"`
	Result any        `json:"result"`
	Error  *WireError `json:"error,omitempty"`
}

// Event is an unsolicited push from the bridge to the host application.
type Event struct {
	Method string `json:"method"`
	Args   any    `json:"args"`
}

type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type ErrorEnvelope struct {
	Error WireError `json:"error"`
}
