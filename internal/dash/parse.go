package dash

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
)

// symbolLink matches the markup-link form the table uses for symbols,
// e.g. [BBNI](/stock_detail/BBNI).
var symbolLink = regexp.MustCompile(`^\[([A-Z0-9-]+)\]`)

// ParseRows normalizes raw table rows into trade records. A row whose
// numeric fields cannot be coerced is dropped and logged; one bad row never
// aborts the batch.
func ParseRows(
	rows []RawRow,
	b broker.Broker,
	category broker.Category,
	tradeDate string,
	crawledAt time.Time,
	logger *zap.Logger,
) []broker.TradeRecord {
	out := make([]broker.TradeRecord, 0, len(rows))
	for _, row := range rows {
		record, err := parseRow(row, b, category, tradeDate, crawledAt)
		if err != nil {
			logger.Debug("dropping malformed row",
				zap.String("broker", b.Code),
				zap.String("category", string(category)),
				zap.Error(err),
			)
			continue
		}
		out = append(out, record)
	}
	return out
}

func parseRow(
	row RawRow,
	b broker.Broker,
	category broker.Category,
	tradeDate string,
	crawledAt time.Time,
) (broker.TradeRecord, error) {
	netVal, err := coerceFloat(row.NetVal)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	bVal, err := coerceFloat(row.BVal)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	sVal, err := coerceFloat(row.SVal)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	bAvg, err := coerceFloat(row.BAvg)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	sAvg, err := coerceFloat(row.SAvg)
	if err != nil {
		return broker.TradeRecord{}, err
	}
	return broker.TradeRecord{
		BrokerCode:   b.Code,
		BrokerName:   b.Name,
		Category:     category,
		Symbol:       ExtractSymbol(coerceString(row.Symbol)),
		NetValue:     netVal,
		BuyValue:     bVal,
		SellValue:    sVal,
		BuyAvgPrice:  bAvg,
		SellAvgPrice: sAvg,
		TradeDate:    tradeDate,
		CrawledAt:    crawledAt,
	}, nil
}

// ExtractSymbol strips the markup-link wrapper when present; plain symbols
// pass through verbatim, so extraction is idempotent.
func ExtractSymbol(raw string) string {
	if m := symbolLink.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// coerceFloat accepts JSON numbers and numeric strings. A missing field
// coerces to zero, matching the upstream table's sparse rows; an explicit
// null is not a number and fails the row.
func coerceFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	if string(raw) == "null" {
		return 0, errors.New("null numeric value")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

// coerceString renders the raw value as a string whether it arrived quoted
// or not.
func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
