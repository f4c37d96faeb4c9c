package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/constants"
	"survival-tracker/internal/domain"

	"github.com/valyala/fasthttp"
)

// Source yields the latest per-player save snapshot, keyed by platform id.
// The binary save parsing itself lives in a companion service; this core
// only consumes its decoded output.
type Source interface {
	FetchLatest(ctx context.Context) (map[string]domain.PlayerSnapshot, error)
}

type response struct {
	Players map[string]domain.PlayerSnapshot `json:"players"`
}

// HTTPSource fetches decoded save snapshots from the companion parser
// service over HTTP.
type HTTPSource struct {
	url    string
	apiKey string
	client *fasthttp.Client
}

func NewHTTPSource(cfg *config.Config) *HTTPSource {
	return &HTTPSource{
		url:    cfg.SnapshotURL,
		apiKey: cfg.SnapshotKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Enabled reports whether a snapshot endpoint is configured at all.
func (s *HTTPSource) Enabled() bool {
	return s.url != ""
}

func (s *HTTPSource) FetchLatest(ctx context.Context) (map[string]domain.PlayerSnapshot, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if s.apiKey != "" {
		req.Header.Set("Authorization", s.apiKey)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = s.client.DoDeadline(req, resp, deadline)
	} else {
		err = s.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode())
	}

	var out response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	for id, snap := range out.Players {
		if snap.PlayerID == "" {
			snap.PlayerID = id
			out.Players[id] = snap
		}
	}
	return out.Players, nil
}
