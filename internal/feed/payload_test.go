package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/entity"
)

func TestTickerPayloadUpdate(t *testing.T) {
	raw := `{
		"e": "24hrTicker",
		"E": 1700000000123,
		"s": "BTCUSDT",
		"c": "105.5",
		"o": "100.2",
		"h": "110.1",
		"l": "99.9",
		"v": "1234.5"
	}`

	var payload TickerPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Equal(t, "24hrTicker", payload.EventType)

	update, err := payload.Update()
	require.NoError(t, err)
	require.Equal(t, entity.NewKey(entity.TypeMarket, "BTCUSDT"), update.Key)
	require.EqualValues(t, 1700000000123, update.Version)
	require.Equal(t, "105.5", update.Data["price"])
	require.Equal(t, "1234.5", update.Data["volume"])
}

func TestTickerPayloadValidation(t *testing.T) {
	_, err := TickerPayload{EventTime: 1}.Update()
	require.Error(t, err)

	_, err = TickerPayload{Symbol: "BTCUSDT"}.Update()
	require.Error(t, err)
}
