package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"livebets/line_tracker/cmd/config"
	"livebets/line_tracker/internal/entity"

	"github.com/rs/zerolog"
)

const (
	errorBodyLimit = 500
	probeTimeout   = 5 * time.Second
)

type API struct {
	cfg    config.APIConfig
	client *http.Client
	logger *zerolog.Logger
	now    func() time.Time
}

func New(cfg config.APIConfig, logger *zerolog.Logger) *API {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			logger.Error().Err(err).Str("proxy", cfg.Proxy).Msg("invalid proxy URL, connecting directly")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	return &API{
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// FetchGames returns the in-play basketball list. The _t parameter keeps
// intermediate caches from serving a stale list.
func (api *API) FetchGames(ctx context.Context) (*entity.InplayResponse, error) {
	query := url.Values{}
	query.Set("sport_id", strconv.Itoa(api.cfg.SportID))
	query.Set("token", api.cfg.Token)
	query.Set("_t", strconv.FormatInt(api.now().Unix(), 10))

	var result entity.InplayResponse
	if err := api.get(ctx, "fetch games", api.cfg.Url, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchGame returns the detail envelope of a single event.
func (api *API) FetchGame(ctx context.Context, id string) (*entity.InplayResponse, error) {
	query := url.Values{}
	query.Set("event_id", id)
	query.Set("token", api.cfg.Token)

	var result entity.InplayResponse
	if err := api.get(ctx, "fetch game", api.cfg.Url, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchMarkets returns the market data of a bet365 event, bounded by the
// odds timeout.
func (api *API) FetchMarkets(ctx context.Context, bet365ID string) (*entity.MarketsResponse, error) {
	if bet365ID == "" {
		return nil, &ProviderError{Op: "fetch markets", Err: ErrNoEventID}
	}
	if api.cfg.OddsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.cfg.OddsTimeout)
		defer cancel()
	}

	query := url.Values{}
	query.Set("token", api.cfg.Token)
	query.Set("event_id", bet365ID)

	var result entity.MarketsResponse
	if err := api.get(ctx, "fetch markets", api.cfg.OddsUrl, query, &result); err != nil {
		return nil, err
	}
	api.logger.Debug().Str("bet365_id", bet365ID).Int("markets", len(result.Results)).Msg("fetched event odds")
	return &result, nil
}

// Probe checks that the in-play endpoint answers 200 within a few seconds.
// The body is not decoded.
func (api *API) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("token", api.cfg.Token)
	query.Set("sport_id", strconv.Itoa(api.cfg.SportID))

	resp, err := api.do(ctx, "probe", api.cfg.Url, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (api *API) get(ctx context.Context, op, rawURL string, query url.Values, out any) error {
	resp, err := api.do(ctx, op, rawURL, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body), Err: fmt.Errorf("%w: %w", ErrMalformedBody, err)}
	}
	return nil
}

// do sends the request and turns every non-200 answer into a ProviderError.
func (api *API) do(ctx context.Context, op, rawURL string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	start := api.now()
	resp, err := api.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}
	api.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("provider response")

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := readBody(resp)
		return nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body), Err: ErrBadStatus}
	}
	return resp, nil
}

// readBody gunzips when the provider compressed the answer. Asking for gzip
// explicitly turns off the transport's own decompression.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		encodedBody, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer encodedBody.Close()
		reader = encodedBody
	}
	return io.ReadAll(reader)
}

func truncate(body []byte) string {
	if len(body) > errorBodyLimit {
		body = body[:errorBodyLimit]
	}
	return string(body)
}
