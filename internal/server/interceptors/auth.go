package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"tenant-storage-core/backend/internal/auditctx"
	identity "tenant-storage-core/backend/internal/identity/domain"
	"tenant-storage-core/backend/internal/security"
)

const bearerPrefix = "bearer "

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata and runs the handler inside an identity scope for that caller.
// The scope is cleared when the handler returns, so nothing captured during one RPC can
// observe the identity afterwards.
//
// publicMethods is the set of full method names that may be called without a token; such
// calls run with an anonymous identity. A nil verifier treats every call as anonymous.
func AuthUnary(verifier *security.Verifier, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]

		id := identity.AnonymousIdentity()
		if token := extractBearer(ctx); token != "" && verifier != nil {
			verified, err := verifier.Verify(token)
			if err == nil {
				id = verified
			} else if !public {
				return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
			}
		}
		if !id.IsAuthenticated() && !public && verifier != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		var resp interface{}
		err := auditctx.Run(ctx, id, func(ctx context.Context) error {
			var herr error
			resp, herr = handler(ctx, req)
			return herr
		})
		return resp, err
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
