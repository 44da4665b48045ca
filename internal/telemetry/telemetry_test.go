package telemetry

import (
	"context"
	"testing"

	"registration-service/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WithoutEndpoint(t *testing.T) {
	tel, err := Init(context.Background(), "", "registration-service", "test", "test", logger.Discard())
	require.NoError(t, err)

	assert.Nil(t, tel.MeterProvider)
	require.NotNil(t, tel.Metrics)
	assert.NotPanics(t, func() { tel.Metrics.RecordRegistrationCreated(context.Background()) })
	require.NotNil(t, tel.Meter)
	require.NotNil(t, tel.Health)
	assert.NotPanics(t, func() { tel.Health.RecordDependencyCheck(context.Background(), "database", 0, nil) })
	assert.NoError(t, tel.Shutdown(context.Background(), logger.Discard()))
}
