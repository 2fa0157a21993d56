package factory

import (
	"errors"
	"net/url"
	"strings"

	"github.com/loykin/launchr/internal/history"
	"github.com/loykin/launchr/internal/history/clickhouse"
	"github.com/loykin/launchr/internal/history/opensearch"
)

// NewSinkFromDSN creates a history sink based on DSN format.
// Supported formats:
//   - "clickhouse://host:port?table=table"
//   - "opensearch://host:port/index" (or "elasticsearch://", optional ?scheme=https)
//
// Relational DSNs belong to the run-record store, not to history sinks.
func NewSinkFromDSN(dsn string) (history.Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	lower := strings.ToLower(dsn)

	if strings.HasPrefix(lower, "clickhouse://") {
		return parseClickHouseDSN(dsn)
	}

	if strings.HasPrefix(lower, "opensearch://") || strings.HasPrefix(lower, "elasticsearch://") {
		return parseOpenSearchDSN(dsn)
	}

	return nil, errors.New("unsupported history DSN: " + dsn)
}

func parseClickHouseDSN(dsn string) (history.Sink, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}

	host := u.Host
	if host == "" {
		host = "localhost:9000" // default ClickHouse native port
	}

	table := u.Query().Get("table")
	if table == "" {
		table = "launchr_history"
	}

	return clickhouse.New(host, table)
}

func parseOpenSearchDSN(dsn string) (history.Sink, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}

	// The sink speaks plain HTTP; the custom scheme only selects the factory.
	scheme := u.Query().Get("scheme")
	if scheme == "" {
		scheme = "http"
	}
	baseURL := scheme + "://" + u.Host

	index := strings.Trim(u.Path, "/")
	if index == "" {
		index = "launchr-history"
	}

	return opensearch.New(baseURL, index), nil
}
