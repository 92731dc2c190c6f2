package ledgerrpc

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/stakeledger/fault"
)

// errorDomain tags ErrorInfo details produced by this service.
const errorDomain = "stakeledger.xdao.co"

var kindCodes = map[fault.Kind]codes.Code{
	fault.KindInvalidProof:      codes.InvalidArgument,
	fault.KindUnauthorized:      codes.PermissionDenied,
	fault.KindUnknownCredential: codes.NotFound,
	fault.KindInsufficientFunds: codes.FailedPrecondition,
	fault.KindUninitialized:     codes.FailedPrecondition,
	fault.KindInvalidAmount:     codes.InvalidArgument,
	fault.KindWrongResource:     codes.InvalidArgument,
	fault.KindConsumed:          codes.InvalidArgument,
	fault.KindCorruptState:      codes.DataLoss,
	fault.KindInternal:          codes.Internal,
}

// toStatus converts a fault error into a status carrying the kind and rule
// as an ErrorInfo detail.
func toStatus(err error) *status.Status {
	kind := fault.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		return status.New(codes.Internal, err.Error())
	}
	st := status.New(code, err.Error())
	withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(kind),
		Domain:   errorDomain,
		Metadata: map[string]string{"ruleId": fault.RuleID(err)},
	})
	if derr != nil {
		return st
	}
	return withInfo
}

// mapRPC turns a status error back into a fault error when the server
// attached an ErrorInfo detail; other errors are returned unchanged.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		return fault.New(fault.Kind(info.GetReason()), info.GetMetadata()["ruleId"], st.Message())
	}
	return err
}
