package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name:   "valid",
			config: NewConfig(WithHost("model-server")),
		},
		{
			name:    "missing host",
			config:  NewConfig(),
			wantErr: ErrHostRequired,
		},
		{
			name:    "port out of range",
			config:  NewConfig(WithHost("model-server"), WithPort(0)),
			wantErr: ErrInvalidPort,
		},
		{
			name:    "endpoint without slash",
			config:  NewConfig(WithHost("model-server"), WithEndpoint("infer")),
			wantErr: ErrInvalidEndpoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_URL(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   string
	}{
		{
			name:   "bare host gets http scheme",
			config: NewConfig(WithHost("model-server")),
			want:   "http://model-server:5757/infer",
		},
		{
			name:   "scheme preserved",
			config: NewConfig(WithHost("https://model-server"), WithPort(8443), WithEndpoint("/v2/infer")),
			want:   "https://model-server:8443/v2/infer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.URL())
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5757, cfg.Port)
	assert.Equal(t, "/infer", cfg.Endpoint)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Empty(t, cfg.Host)
}
