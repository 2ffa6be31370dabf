package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"papertrader/internal/logger"
	"papertrader/internal/models"
)

type BybitSource struct {
	baseURL    string
	pairs      map[string]bool
	httpClient *http.Client
	log        *logger.Logger

	mu    sync.Mutex
	cache models.Snapshot
}

func NewBybit(baseURL string, pairs []string, log *logger.Logger) *BybitSource {
	pairSet := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		pairSet[pair] = true
	}
	return &BybitSource{
		baseURL: baseURL,
		pairs:   pairSet,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log:   log,
		cache: models.Snapshot{},
	}
}

// Connect прогревает кэш первым снапшотом. Сбой не фатален,
// кэш заполнится на первом удачном тике.
func (b *BybitSource) Connect(ctx context.Context) error {
	snap, err := b.fetchTickers(ctx)
	if err != nil {
		b.log.WithComponent("market").WithError(err).Warn("Не удалось прогреть кэш котировок.")
		return nil
	}
	b.mu.Lock()
	b.cache = snap
	b.mu.Unlock()
	b.log.WithComponent("market").WithField("pairs", len(snap)).Info("Источник котировок подключен.")
	return nil
}

func (b *BybitSource) FetchSnapshot(ctx context.Context) models.Snapshot {
	snap, err := b.fetchTickers(ctx)
	if err != nil {
		b.log.WithComponent("market").WithError(err).Warn("Не удалось получить снапшот рынка, используем кэш.")
		return b.cached()
	}
	b.mu.Lock()
	b.cache = snap
	b.mu.Unlock()
	return snap
}

func (b *BybitSource) Close() {
	b.httpClient.CloseIdleConnections()
}

func (b *BybitSource) cached() models.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := make(models.Snapshot, len(b.cache))
	for pair, ticker := range b.cache {
		snap[pair] = ticker
	}
	return snap
}

type bybitResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string `json:"category"`
		List     []T    `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}

type tickerInfo struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Bid1Price string `json:"bid1Price"`
	Ask1Price string `json:"ask1Price"`
	Volume24h string `json:"volume24h"`
}

func (b *BybitSource) fetchTickers(ctx context.Context) (models.Snapshot, error) {
	params := url.Values{}
	params.Set("category", "spot")

	var resp bybitResponse[tickerInfo]
	if err := b.doRequest(ctx, "/v5/market/tickers", params, &resp); err != nil {
		return nil, err
	}

	now := time.Now()
	snap := make(models.Snapshot, len(b.pairs))
	for _, info := range resp.Result.List {
		if !b.pairs[info.Symbol] {
			continue
		}
		last, err := strconv.ParseFloat(info.LastPrice, 64)
		if err != nil || last <= 0 {
			continue
		}
		bid, _ := strconv.ParseFloat(info.Bid1Price, 64)
		ask, _ := strconv.ParseFloat(info.Ask1Price, 64)
		volume, _ := strconv.ParseFloat(info.Volume24h, 64)
		snap[info.Symbol] = models.Ticker{
			Pair:      info.Symbol,
			Last:      last,
			Bid:       bid,
			Ask:       ask,
			Volume:    volume,
			Timestamp: now,
		}
	}
	return snap, nil
}

func (b *BybitSource) doRequest(ctx context.Context, path string, params url.Values, out *bybitResponse[tickerInfo]) error {
	urlStr := b.baseURL + path
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("Не удалось создать запрос: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ошибка запроса: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Не удалось прочитать ответ: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("Не удалось разобрать ответ: %w", err)
	}

	if out.RetCode != 0 {
		return fmt.Errorf("Ошибка bybit: %s (code=%d)", out.RetMsg, out.RetCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("Неуспешный статус: %s", resp.Status)
	}

	return nil
}
