package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
)

func TestMessages(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msgs, err := Messages(inventory.Event{
		Type: inventory.EventStockAdjusted, ProductID: "p1", BranchID: "b1", Delta: -2, Stock: 8, At: at,
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	assert.Equal(t, "b1:p1", string(m.Key))
	assert.Equal(t, at, m.Time)
	require.Len(t, m.Headers, 1)
	assert.Equal(t, "event-type", m.Headers[0].Key)
	assert.Equal(t, inventory.EventStockAdjusted, string(m.Headers[0].Value))

	var ev inventory.Event
	require.NoError(t, json.Unmarshal(m.Value, &ev))
	assert.Equal(t, int64(-2), ev.Delta)
	assert.Equal(t, int64(8), ev.Stock)
}

func TestKafkaPublisher_NoEventsIsNoop(t *testing.T) {
	p := NewKafkaPublisher([]string{"127.0.0.1:1"}, "pos.events")
	defer p.Close()
	assert.NoError(t, p.Publish(context.Background()))
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, p.Publish(context.Background(), inventory.Event{Type: inventory.EventSaleCreated, BranchID: "b1", RefID: "s1"}))
	assert.Contains(t, buf.String(), `"event":"sale.created"`)
	assert.Contains(t, buf.String(), `"ref_id":"s1"`)
}
