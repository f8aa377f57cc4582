package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		endpoint string
		insecure bool
	}{
		{raw: "collector:4318", endpoint: "collector:4318", insecure: true},
		{raw: "http://collector:4318", endpoint: "collector:4318", insecure: true},
		{raw: "https://otel.example.com", endpoint: "otel.example.com", insecure: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			endpoint, insecure := normalizeEndpoint(tt.raw)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.insecure, insecure)
		})
	}
}

func TestSetup_WithoutExporter(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "media-router-test"}, zerolog.Nop())
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "upload")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
