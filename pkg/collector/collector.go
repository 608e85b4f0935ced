package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rxtx-hosting/mtastats/pkg/store"
)

// The upstream answers with a handful of bytes; anything larger is not a counter.
const maxBodySize = 4 << 10

var (
	ErrRequest   = errors.New("request failed")
	ErrStatus    = errors.New("unexpected status")
	ErrMalformed = errors.New("malformed response")
)

type Appender interface {
	Append(store.Observation) error
}

type Collector struct {
	endpoint string
	client   *http.Client
	store    Appender
	now      func() time.Time
}

func NewCollector(endpoint string, timeout time.Duration, s Appender) *Collector {
	return &Collector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		store:    s,
		now:      time.Now,
	}
}

// Collect fetches the current counts without touching the store.
func (c *Collector) Collect(ctx context.Context) (store.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return store.Observation{}, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return store.Observation{}, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return store.Observation{}, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return store.Observation{}, fmt.Errorf("%w: reading body: %v", ErrRequest, err)
	}

	players, servers, err := ParseCounts(string(body))
	if err != nil {
		return store.Observation{}, err
	}

	return store.Observation{
		Timestamp: c.now().Truncate(time.Second),
		Players:   players,
		Servers:   servers,
	}, nil
}

// Run collects once and appends the result. Every failure is logged and
// swallowed; the bool reports whether a record was written.
func (c *Collector) Run(ctx context.Context) (store.Observation, bool) {
	obs, err := c.Collect(ctx)
	if err != nil {
		slog.Error("Collection failed", "endpoint", c.endpoint, "reason", failureReason(err), "error", err)
		return store.Observation{}, false
	}

	if err := c.store.Append(obs); err != nil {
		slog.Error("Failed to save observation", "error", err)
		return store.Observation{}, false
	}

	slog.Info("Saved observation",
		"timestamp", obs.Timestamp.Format(store.TimeLayout),
		"players", obs.Players,
		"servers", obs.Servers,
	)
	return obs, true
}

// ParseCounts reads "players,servers[,...]" from the upstream body.
func ParseCounts(body string) (players, servers int, err error) {
	parts := strings.Split(strings.TrimSpace(body), ",")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: expected at least 2 fields, got %d", ErrMalformed, len(parts))
	}

	players, err = parseCount(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: player count: %v", ErrMalformed, err)
	}
	servers, err = parseCount(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: server count: %v", ErrMalformed, err)
	}
	return players, servers, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "request"
	}
}
