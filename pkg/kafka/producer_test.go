package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_NoBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewProducer(context.Background(), &ProducerConfig{ClientID: "test"})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestNewProducer_UnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := NewProducer(ctx, &ProducerConfig{
		Brokers:       []string{"127.0.0.1:1"},
		ClientID:      "test",
		MaxRetries:    0,
		RetryInterval: 10 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping Kafka")
}
