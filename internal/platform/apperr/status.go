package apperr

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code maps an error's Kind onto a gRPC status code.
func Code(err error) codes.Code {
	switch KindOf(err) {
	case "":
		return codes.OK
	case KindAuthenticationRequired:
		return codes.Unauthenticated
	case KindPermissionDenied:
		return codes.PermissionDenied
	case KindValidation:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status error carrying only the caller-safe message.
// Errors that already are gRPC statuses pass through unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), UserMessage(err))
}
