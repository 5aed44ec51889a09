package queue

import (
	"testing"

	"labswarm/pkg/config"
	"labswarm/pkg/queue/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePhaseQueue(t *testing.T) {
	cfg := config.Default()

	q, err := CreatePhaseQueue(cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Queue{}, q)
	q.Stop()

	cfg.Providers.Queue = "kafka"
	_, err = CreatePhaseQueue(cfg)
	assert.Error(t, err)
}
