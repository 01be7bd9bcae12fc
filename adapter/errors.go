package adapter

import (
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"google.golang.org/grpc/codes"
)

func commonError(code codes.Code, err error) error {
	switch code {
	case codes.ResourceExhausted:
		return &zeebeerrors.ErrBackPressure{Cause: err}
	case codes.Unavailable, codes.Canceled:
		return &zeebeerrors.ErrGatewayUnavailable{Cause: err}
	case codes.Internal:
		return &zeebeerrors.ErrInternal{Cause: err}
	case codes.DeadlineExceeded:
		return &zeebeerrors.ErrDeadlineExceeded{Cause: err}
	default:
		return &zeebeerrors.ErrUnknownGrpcStatusCode{Cause: err}
	}
}
