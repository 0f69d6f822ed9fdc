package consumer

import (
	"testing"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/config"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindings(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, []Binding{
		{Exchange: "docusurvey.requests", RoutingKey: "survey.reconcile"},
		{Exchange: "docusurvey.events", RoutingKey: "response.orphaned"},
	}, Bindings(cfg))
}

func TestProcessMessage(t *testing.T) {
	c := &Consumer{logger: logger.NewNop()}

	t.Run("forwards valid events", func(t *testing.T) {
		out := make(chan entity.Event, 1)

		err := c.processMessage(amqp.Delivery{
			Body: []byte(`{"id":"e-1","type":"survey.reconcile","payload":"eyJzdXJ2ZXlfaWQiOiJ4In0=","timestamp":"2026-10-19T12:00:00Z"}`),
		}, out)
		require.NoError(t, err)

		event := <-out
		assert.Equal(t, "e-1", event.ID)
		assert.Equal(t, "survey.reconcile", event.Type)
		assert.Equal(t, `{"survey_id":"x"}`, string(event.Payload))
	})

	t.Run("falls back to the routing key", func(t *testing.T) {
		out := make(chan entity.Event, 1)

		err := c.processMessage(amqp.Delivery{
			RoutingKey: "response.orphaned",
			Body:       []byte(`{"id":"e-2","payload":"e30="}`),
		}, out)
		require.NoError(t, err)
		assert.Equal(t, "response.orphaned", (<-out).Type)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		out := make(chan entity.Event, 1)

		assert.Error(t, c.processMessage(amqp.Delivery{Body: []byte("not json")}, out))
		assert.Error(t, c.processMessage(amqp.Delivery{Body: []byte(`{"type":"survey.reconcile"}`)}, out))
		assert.Empty(t, out)
	})

	t.Run("drops when the channel is full", func(t *testing.T) {
		out := make(chan entity.Event)

		err := c.processMessage(amqp.Delivery{
			Body: []byte(`{"id":"e-3","type":"survey.reconcile","payload":"e30="}`),
		}, out)
		assert.ErrorIs(t, err, ErrChannelFull)
	})
}
