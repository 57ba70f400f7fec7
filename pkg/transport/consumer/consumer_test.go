package consumer

import (
	"errors"
	"testing"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/pkg/config"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	gojson "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bareConsumer() *Consumer {
	return &Consumer{
		logger:   logger.Nop(),
		cfg:      config.Default(),
		bindings: make(map[binding]struct{}),
	}
}

func TestInit_InvalidParameters(t *testing.T) {
	_, err := Init(nil, logger.Nop(), nil)

	assert.ErrorContains(t, err, "cannot be nil")
}

func TestConsumer_ProcessMessage(t *testing.T) {
	c := bareConsumer()

	t.Run("forwards decoded events", func(t *testing.T) {
		out := make(chan entity.Event, 1)
		event := entity.NewEvent("request.questionnaire.submit", []byte(`{"title":"x"}`))
		body, err := gojson.Marshal(event)
		require.NoError(t, err)

		require.NoError(t, c.processMessage(body, out))

		got := <-out
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, event.Payload, got.Payload)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		out := make(chan entity.Event, 1)

		assert.ErrorContains(t, c.processMessage([]byte("{"), out), "unmarshal")
		assert.Empty(t, out)
	})

	t.Run("rejects incomplete events", func(t *testing.T) {
		out := make(chan entity.Event, 1)

		err := c.processMessage([]byte(`{"id":"1","type":"t"}`), out)
		assert.ErrorIs(t, err, entity.ErrEventNoPayload)
	})

	t.Run("drops when the channel is full", func(t *testing.T) {
		out := make(chan entity.Event)
		body, _ := gojson.Marshal(entity.NewEvent("t", []byte("{}")))

		assert.ErrorContains(t, c.processMessage(body, out), "full")
	})
}

func TestConsumer_Disconnected(t *testing.T) {
	c := bareConsumer()

	assert.False(t, c.IsHealthy())
	assert.ErrorIs(t, c.Subscribe("ex", "key", "queue"), ErrNotConnected)
	assert.NoError(t, c.Close())
}

func TestConsumer_ReconnectDialFailure(t *testing.T) {
	c := bareConsumer()
	refused := errors.New("refused")
	c.dial = func(string) (*amqp.Connection, error) { return nil, refused }

	err := c.handleReconnection()

	assert.ErrorIs(t, err, refused)
	assert.False(t, c.IsHealthy())
}
