package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapOpenStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       uint32
		wantReason OpenReason // 0 means expect *EngineError instead
	}{
		{"file error is corrupt", StatusFile, OpenCorrupt},
		{"format error is corrupt", StatusFormat, OpenCorrupt},
		{"password error", StatusPassword, OpenBadPassword},
		{"security error", StatusSecurity, OpenUnsupportedSecurity},
		{"unknown status falls through", StatusUnknown, 0},
		{"page status falls through", StatusPage, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapOpenStatus(tt.code)
			if tt.wantReason != 0 {
				var oe *OpenError
				require.ErrorAs(t, err, &oe)
				assert.Equal(t, tt.wantReason, oe.Reason)
				assert.Equal(t, tt.code, oe.Code)
			} else {
				var ee *EngineError
				require.ErrorAs(t, err, &ee)
				assert.Equal(t, tt.code, ee.Code)
			}
		})
	}
}

func TestTextErrorMessage(t *testing.T) {
	err := &TextError{Length: 5000, Limit: 4096}
	assert.Contains(t, err.Error(), "exceeds maximum")
	assert.Contains(t, err.Error(), "5000")
}

func TestRangeErrorMessage(t *testing.T) {
	err := &RangeError{What: "page index", Value: 9, Min: 0, Max: 4}
	assert.Equal(t, "page index 9 out of range [0, 4]", err.Error())
}

func TestLoadErrorUnwraps(t *testing.T) {
	inner := assert.AnError
	le := &LoadError{Backend: "native", Err: inner}
	assert.ErrorIs(t, le, inner)
	assert.Contains(t, le.Error(), "native")
}
