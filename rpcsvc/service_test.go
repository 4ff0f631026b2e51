package rpcsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/quilldb/quill/sql"
)

func TestToStatusNilErrorIsNil(t *testing.T) {
	require.NoError(t, ToStatus(nil))
}

func TestToStatusMapsEngineErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"unsupported feature", sql.ErrUnsupportedFeature.New("CREATE TEMP TABLE"), codes.Unimplemented},
		{"no winner", sql.ErrNoWinner.New(7), codes.FailedPrecondition},
		{"impossible shape", sql.ErrRuleProducedImpossibleShape.New("joinImplRule", "arity mismatch"), codes.FailedPrecondition},
		{"unique violation", sql.ErrUniqueViolation.New("foo_id", []byte("k")), codes.AlreadyExists},
		{"divide by zero", sql.ErrDivideByZero.New(), codes.Internal},
		{"cast failed", sql.ErrCastFailed.New("abc", "int64"), codes.Internal},
		{"read only", sql.ErrReadOnly.New(), codes.FailedPrecondition},
		{"table not found", sql.ErrTableNotFound.New("t"), codes.NotFound},
		{"index not found", sql.ErrIndexNotFound.New("t_x"), codes.NotFound},
		{"temp table not found", sql.ErrTempTableNotFound.New("tmp"), codes.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := status.Convert(ToStatus(tc.err))
			require.Equal(t, tc.code, st.Code())
		})
	}
}

func TestToStatusMapsUnrecognizedErrorToUnavailable(t *testing.T) {
	st := status.Convert(ToStatus(errors.New("connection reset")))
	require.Equal(t, codes.Unavailable, st.Code())
}
