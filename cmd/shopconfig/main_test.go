package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newCLI(&out, io.Discard).Run(append([]string{"shopconfig"}, args...))
	return out.String(), err
}

func TestDeviceIDCommand(t *testing.T) {
	out, err := run(t, "device-id")
	require.NoError(t, err)

	id, err := uuid.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())

	again, err := run(t, "device-id")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestVerifyCommand(t *testing.T) {
	const device = "support-device"
	tomorrow := time.Now().AddDate(0, 0, 1)

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{
			name: "valid",
			key:  license.Sign(license.DefaultKey(), device, tomorrow, "cli").Encode(),
			want: "valid until " + tomorrow.Format(time.DateOnly),
		},
		{
			name:    "other device",
			key:     license.Sign(license.DefaultKey(), "elsewhere", tomorrow, "cli").Encode(),
			want:    "invalid (device_mismatch)",
			wantErr: errKeyRejected,
		},
		{
			name:    "garbage",
			key:     "not-a-key",
			want:    "invalid (malformed_encoding)",
			wantErr: errKeyRejected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "verify", "--device", device, tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, tt.key)
		})
	}
}

func TestVerifyCommand_RequiresKey(t *testing.T) {
	_, err := run(t, "verify")
	assert.Error(t, err)
}
