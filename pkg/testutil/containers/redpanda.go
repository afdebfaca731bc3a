//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

const redpandaImage = "docker.redpanda.com/redpandadata/redpanda:v23.3.3"

// RedpandaContainer is a single-node Kafka-compatible broker.
type RedpandaContainer struct {
	Container *redpanda.Container
	Broker    string
}

func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()
	ctx := context.Background()

	c, err := redpanda.Run(ctx, redpandaImage, redpanda.WithAutoCreateTopics())
	c = mustStart(t, "redpanda", c, err)

	broker, err := c.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("redpanda seed broker: %v", err)
	}
	return &RedpandaContainer{Container: c, Broker: broker}
}
