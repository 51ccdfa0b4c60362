package domain

import (
	"errors"
	"fmt"
)

// ExternalErrorKind clasifica fallos de integraciones externas. La
// clasificacion se decide una sola vez en el adaptador.
type ExternalErrorKind int

const (
	KindUnknown ExternalErrorKind = iota
	KindStreamUnsupported
	KindPermissionDenied
	KindRateLimited
	KindInvalidGrant
	KindPolicyRevoked
	KindNotFound
	KindUnauthorized
)

func (k ExternalErrorKind) String() string {
	switch k {
	case KindStreamUnsupported:
		return "stream_unsupported"
	case KindPermissionDenied:
		return "permission_denied"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidGrant:
		return "invalid_grant"
	case KindPolicyRevoked:
		return "policy_revoked"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

type ExternalError struct {
	Service string
	Kind    ExternalErrorKind
	Err     error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// KindOf extrae el tipo de un error externo; KindUnknown si no lo es.
func KindOf(err error) ExternalErrorKind {
	var ext *ExternalError
	if errors.As(err, &ext) {
		return ext.Kind
	}
	return KindUnknown
}
