package rulesheet

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

const locale = "en-US"

// ExitCode maps err to a process exit status. Rule errors exit with their
// gRPC status code so scripts can tell bad input from missing entries;
// everything else exits with 1.
func ExitCode(err error) int {
	var e *apperrors.Error
	if !errors.As(err, &e) {
		return 1
	}
	return int(e.Code.GRPCCode())
}

// Describe renders err for the terminal. Rule errors are rendered from
// their gRPC status: code, reason, message and sorted metadata.
func Describe(err error) string {
	var e *apperrors.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	st := status.Convert(e.ToGRPCStatus(locale, e.Message))

	var b strings.Builder
	fmt.Fprintf(&b, "%s", st.Code())
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, " %s", info.GetReason())
		keys := make([]string, 0, len(info.GetMetadata()))
		for k := range info.GetMetadata() {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		if len(keys) > 0 {
			fields := make([]string, len(keys))
			for i, k := range keys {
				fields[i] = k + "=" + info.GetMetadata()[k]
			}
			fmt.Fprintf(&b, " [%s]", strings.Join(fields, " "))
		}
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	}
	return b.String()
}
