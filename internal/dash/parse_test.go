package dash

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
)

var testBroker = broker.Broker{Code: "YP", Name: "Mirae Asset Sekuritas"}

func rawRow(t *testing.T, fields map[string]any) RawRow {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	var row RawRow
	require.NoError(t, json.Unmarshal(data, &row))
	return row
}

func TestParseRows_CoercesNumbersAndStrings(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rows := []RawRow{
		rawRow(t, map[string]any{
			"symbol": "[BBNI](/stock_detail/BBNI)",
			"netval": 12.5,
			"bval":   "30.2",
			"sval":   17.7,
			"bavg":   "5200",
			"savg":   5150,
		}),
	}

	records := ParseRows(rows, testBroker, broker.CategoryBuy, "2025-03-14", now, zap.NewNop())
	require.Len(t, records, 1)

	r := records[0]
	require.Equal(t, "YP", r.BrokerCode)
	require.Equal(t, "Mirae Asset Sekuritas", r.BrokerName)
	require.Equal(t, broker.CategoryBuy, r.Category)
	require.Equal(t, "BBNI", r.Symbol)
	require.InDelta(t, 12.5, r.NetValue, 1e-9)
	require.InDelta(t, 30.2, r.BuyValue, 1e-9)
	require.InDelta(t, 17.7, r.SellValue, 1e-9)
	require.InDelta(t, 5200, r.BuyAvgPrice, 1e-9)
	require.InDelta(t, 5150, r.SellAvgPrice, 1e-9)
	require.Equal(t, "2025-03-14", r.TradeDate)
	require.Equal(t, now, r.CrawledAt)
}

func TestParseRows_MissingFieldsCoerceToZero(t *testing.T) {
	t.Parallel()
	rows := []RawRow{
		rawRow(t, map[string]any{"symbol": "TLKM", "netval": 1.0}),
	}

	records := ParseRows(rows, testBroker, broker.CategorySell, "2025-03-14", time.Now(), zap.NewNop())
	require.Len(t, records, 1)
	require.Zero(t, records[0].BuyValue)
	require.Zero(t, records[0].SellValue)
	require.Zero(t, records[0].BuyAvgPrice)
	require.Zero(t, records[0].SellAvgPrice)
}

func TestParseRows_DropsMalformedRowOnly(t *testing.T) {
	t.Parallel()
	rows := []RawRow{
		rawRow(t, map[string]any{"symbol": "BBCA", "netval": 1.0}),
		rawRow(t, map[string]any{"symbol": "BAD", "netval": "not-a-number"}),
		rawRow(t, map[string]any{"symbol": "BMRI", "netval": 2.0}),
	}

	records := ParseRows(rows, testBroker, broker.CategoryBuy, "2025-03-14", time.Now(), zap.NewNop())
	require.Len(t, records, 2)
	require.Equal(t, "BBCA", records[0].Symbol)
	require.Equal(t, "BMRI", records[1].Symbol)
}

func TestParseRows_NullNumericDropsRow(t *testing.T) {
	t.Parallel()
	rows := []RawRow{
		rawRow(t, map[string]any{"symbol": "BBCA", "netval": 1.0}),
		rawRow(t, map[string]any{"symbol": "ASII", "netval": nil}),
	}

	records := ParseRows(rows, testBroker, broker.CategoryBuy, "2025-03-14", time.Now(), zap.NewNop())
	require.Len(t, records, 1)
	require.Equal(t, "BBCA", records[0].Symbol)
}

func TestExtractSymbol(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want string
	}{
		{"[BBNI](/stock_detail/BBNI)", "BBNI"},
		{"[GOTO](https://neobdm.tech/stock_detail/GOTO)", "GOTO"},
		{"BBNI", "BBNI"},
		{"[MBMA-W](/stock_detail/MBMA-W)", "MBMA-W"},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ExtractSymbol(tc.in))
	}
}

func TestExtractSymbol_Idempotent(t *testing.T) {
	t.Parallel()
	once := ExtractSymbol("[ANTM](/stock_detail/ANTM)")
	require.Equal(t, "ANTM", once)
	require.Equal(t, once, ExtractSymbol(once))
}
