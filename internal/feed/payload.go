package feed

import (
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"

	"main/internal/entity"
)

// TickerPayload is the venue's 24hr ticker event.
type TickerPayload struct {
	EventType string          `json:"e"`
	EventTime int64           `json:"E"`
	Symbol    string          `json:"s"`
	LastPrice decimal.Decimal `json:"c"`
	OpenPrice decimal.Decimal `json:"o"`
	HighPrice decimal.Decimal `json:"h"`
	LowPrice  decimal.Decimal `json:"l"`
	Volume    decimal.Decimal `json:"v"`
}

// Update normalizes the payload into a market entity update. The
// event timestamp doubles as the server version: the venue stream has
// no explicit revision counter and event times are monotonic per
// symbol.
func (p TickerPayload) Update() (Update, error) {
	if p.Symbol == "" {
		return Update{}, errors.New("ticker without symbol")
	}
	if p.EventTime <= 0 {
		return Update{}, errors.Errorf("ticker %s without event time", p.Symbol)
	}

	return Update{
		Key: entity.NewKey(entity.TypeMarket, p.Symbol),
		Data: entity.Data{
			"price":  p.LastPrice.String(),
			"open":   p.OpenPrice.String(),
			"high":   p.HighPrice.String(),
			"low":    p.LowPrice.String(),
			"volume": p.Volume.String(),
		},
		Version: p.EventTime,
	}, nil
}
