package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"tenant-storage-core/backend/internal/auditctx"
	"tenant-storage-core/backend/internal/platform/apperr"
)

// ErrorUnary converts application errors returned by handlers into gRPC statuses and logs
// one line per failed RPC. Errors that already carry a status pass through unchanged.
// It must run inside AuthUnary so that the caller is known.
func ErrorUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return resp, err
		}
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("user_id", auditctx.FromContext(ctx).ID()),
			zap.String("client_ip", ClientIP(ctx)),
			zap.String("outcome", string(apperr.KindOf(err))),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		}
		switch apperr.KindOf(err) {
		case apperr.KindInternal, apperr.KindConfiguration:
			log.Error("rpc failed", fields...)
		default:
			log.Debug("rpc rejected", fields...)
		}
		return nil, apperr.ToStatus(err)
	}
}
