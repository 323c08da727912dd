package broker

import (
	"time"
)

// Category classifies which side of the trade a table reports.
type Category string

// Table categories present in the upstream response.
const (
	CategoryBuy  Category = "buy"
	CategorySell Category = "sell"
)

// Broker identifies one crawl target by its exchange code.
type Broker struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TradeRecord is one normalized trading observation for a broker/symbol pair.
// Values are in milyar Rp except the average price fields.
type TradeRecord struct {
	BrokerCode   string    `json:"broker_code"`
	BrokerName   string    `json:"broker_name"`
	Category     Category  `json:"category"`
	Symbol       string    `json:"symbol"`
	NetValue     float64   `json:"netval"`
	BuyValue     float64   `json:"bval"`
	SellValue    float64   `json:"sval"`
	BuyAvgPrice  float64   `json:"bavg"`
	SellAvgPrice float64   `json:"savg"`
	TradeDate    string    `json:"trade_date"`
	CrawledAt    time.Time `json:"crawled_at"`
}

// Checkpoint is the durable snapshot written after every broker so an
// interrupted run can resume without re-fetching completed work.
type Checkpoint struct {
	RunID            string        `json:"run_id"`
	StartedAt        time.Time     `json:"started_at"`
	LastBrokerIndex  int           `json:"last_broker_index"`
	LastBrokerCode   string        `json:"last_broker_code"`
	CompletedBrokers []string      `json:"completed_brokers"`
	FailedBrokers    []string      `json:"failed_brokers"`
	PartialRecords   []TradeRecord `json:"partial_records"`
}

// RunSummary aggregates the outcome of one full crawl pass.
type RunSummary struct {
	RunID             string        `json:"run_id"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
	Duration          time.Duration `json:"duration"`
	TotalBrokers      int           `json:"total_brokers"`
	SuccessfulBrokers int           `json:"successful_brokers"`
	FailedBrokers     int           `json:"failed_brokers"`
	FailedBrokerCodes []string      `json:"failed_broker_codes"`
	TotalRecords      int           `json:"total_records"`
	Resumed           bool          `json:"resumed"`
}

// RunStatus is the terminal state of a daily run as seen by the scheduler.
type RunStatus string

// Run status values recorded in the crawl log and mapped to exit codes.
const (
	RunStatusSuccess        RunStatus = "success"
	RunStatusSkipped        RunStatus = "skipped"
	RunStatusPartialFailure RunStatus = "partial_failure"
	RunStatusError          RunStatus = "error"
)

// ExitCode maps a run status to a process exit code. Only genuine failures
// are non-zero so the external scheduler can alert on them.
func (s RunStatus) ExitCode() int {
	switch s {
	case RunStatusSuccess, RunStatusSkipped:
		return 0
	default:
		return 1
	}
}

// RunResult is the structured outcome returned to the scheduler entry point.
type RunResult struct {
	Date              string    `json:"date"`
	Status            RunStatus `json:"status"`
	Message           string    `json:"message"`
	RowsProcessed     int       `json:"rows_processed"`
	SuccessfulBrokers int       `json:"successful_brokers"`
	FailedBrokers     int       `json:"failed_brokers"`
}

// RunMetrics is handed to the trade store when closing out a crawl log entry.
type RunMetrics struct {
	TotalRows         int
	SuccessfulBrokers int
	FailedBrokers     int
	ErrorMessage      string
}

// LastRun describes the most recent successful crawl for health reporting.
type LastRun struct {
	Date        string    `json:"date"`
	CompletedAt time.Time `json:"completed_at"`
	TotalRows   int       `json:"total_rows"`
}

// HealthStatus is exposed by the observability endpoint.
type HealthStatus struct {
	Connected bool     `json:"db_connected"`
	LastRun   *LastRun `json:"last_crawl,omitempty"`
	Status    string   `json:"status"`
}
