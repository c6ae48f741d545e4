package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

// The bridge exposes a closed error vocabulary to the host application.
// Anything the store backend throws that does not map onto one of the
// domain codes is surfaced as CodeUnknown with the backend message intact.
const (
	CodeInvalidArguments   Code = "INVALID_ARGUMENTS"
	CodeVerificationFailed Code = "VERIFICATION_FAILED"
	CodeProductNotFound    Code = "PRODUCT_NOT_FOUND"
	CodePurchasePending    Code = "PURCHASE_PENDING"
	CodeUnknown            Code = "UNKNOWN_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeInvalidArguments: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "invalid arguments",
		DetailsAllowed: true,
	},
	CodeVerificationFailed: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "transaction failed verification",
		DetailsAllowed: false,
	},
	CodeProductNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "product not found",
		DetailsAllowed: false,
	},
	CodePurchasePending: {
		HTTPStatus:     http.StatusAccepted,
		Retryable:      true,
		PublicMessage:  "purchase is pending",
		DetailsAllowed: false,
	},
	CodeUnknown: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "unknown error",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeUnknown]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Normalize coerces any error into the bridge's typed form. Errors without
// a code become CodeUnknown and keep the original message verbatim so the
// host sees what the backend reported.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	if typed := As(err); typed != nil {
		return typed
	}
	return Wrap(CodeUnknown, err, err.Error())
}
