package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peternagy/consultadmin/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "consultadmin-test",
		OTLPEndpoint: "localhost:4317",
		Enabled:      false,
	})

	require.NoError(t, err)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestInit_Enabled(t *testing.T) {
	ctx := context.Background()

	// gRPC exporters connect lazily, so no collector is needed here.
	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "consultadmin-test",
		ServiceVersion: "test",
		OTLPEndpoint:   "localhost:4317",
		SampleRatio:    1,
		Enabled:        true,
	})
	require.NoError(t, err)
	assert.NotNil(t, provider.TracerProvider)
	assert.NotNil(t, provider.MeterProvider)

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = provider.Shutdown(shutdownCtx)
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}
