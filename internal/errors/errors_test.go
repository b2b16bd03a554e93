package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanError(t *testing.T) {
	t.Run("error without target", func(t *testing.T) {
		err := WrapScanErrorWithTarget(CodeScanFailed, "scan failed", "", nil)
		assert.Equal(t, "[SCAN_FAILED] scan failed", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error with target", func(t *testing.T) {
		err := WrapScanErrorWithTarget(CodeCanceled, "scan aborted", "10.0.0.1", context.Canceled)
		assert.Equal(t, "[CANCELED] scan aborted (target: 10.0.0.1)", err.Error())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTargetError(t *testing.T) {
	cause := fmt.Errorf("no such host")
	err := ErrUnresolvable("nope.invalid", cause)

	assert.Equal(t, CodeTargetUnresolvable, err.Code)
	assert.Contains(t, err.Error(), "nope.invalid")
	assert.Contains(t, err.Error(), "no such host")
	assert.Same(t, cause, err.Unwrap())

	bare := NewTargetError(CodeTargetInvalid, "bad target", "x", nil)
	assert.Equal(t, "[TARGET_INVALID] bad target (target: x)", bare.Error())
}

func TestConfigError(t *testing.T) {
	err := NewConfigFieldError(CodeValidation, "Invalid configuration value", "scan.threads", 0)
	assert.Equal(t, "[VALIDATION] Invalid configuration value (field: scan.threads)", err.Error())
	assert.Equal(t, 0, err.Value)

	wrapped := WrapConfigError(CodeConfiguration, "cannot read config", errors.New("boom"))
	assert.Equal(t, "[CONFIGURATION] cannot read config", wrapped.Error())
	assert.EqualError(t, wrapped.Unwrap(), "boom")
}

func TestExportError(t *testing.T) {
	err := WrapExportError(CodeExportFailed, "/tmp/out.json", "json", errors.New("disk full"))
	assert.Equal(t, "[EXPORT_FAILED] failed to write json results to /tmp/out.json: disk full", err.Error())
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"scan error", WrapScanErrorWithTarget(CodeScanFailed, "x", "", nil), CodeScanFailed},
		{"target error", ErrUnresolvable("h", nil), CodeTargetUnresolvable},
		{"config error", NewConfigFieldError(CodeValidation, "x", "f", 1), CodeValidation},
		{"export error", WrapExportError(CodeExportFailed, "p", "csv", nil), CodeExportFailed},
		{"wrapped target error", fmt.Errorf("outer: %w", ErrUnresolvable("h", nil)), CodeTargetUnresolvable},
		{"plain error", errors.New("plain"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestClassification(t *testing.T) {
	require.True(t, IsSkippable(ErrUnresolvable("h", nil)))
	require.True(t, IsSkippable(NewTargetError(CodeTargetTooLarge, "too big", "10.0.0.0/8", nil)))
	require.False(t, IsSkippable(WrapScanErrorWithTarget(CodeCanceled, "x", "", nil)))

	assert.True(t, IsFatal(NewConfigFieldError(CodeValidation, "x", "f", nil)))
	assert.True(t, IsFatal(WrapScanErrorWithTarget(CodeCanceled, "x", "", nil)))
	assert.False(t, IsFatal(ErrUnresolvable("h", nil)))

	assert.True(t, IsCode(ErrUnresolvable("h", nil), CodeTargetUnresolvable))
	assert.False(t, IsCode(nil, CodeUnknown))
}
