// Package catalog proxies card lookups to the Scryfall API. Responses are
// cached so repeated searches from the app do not hit Scryfall's rate limit.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"card-trader/cache"
	"card-trader/config"
	"card-trader/models"
)

const userAgent = "card-trader/1.0"

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Store
	ttl        time.Duration
	log        logrus.FieldLogger
}

func NewClient(cfg config.Scryfall, store cache.Store, log logrus.FieldLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      store,
		ttl:        cfg.CacheTTL,
		log:        log,
	}
}

// Price is the current market price of one printing. Scryfall reports
// missing prices as null.
type Price struct {
	CardID   string              `json:"cardId"`
	CardName string              `json:"cardName"`
	SetCode  string              `json:"setCode"`
	USD      decimal.NullDecimal `json:"usd"`
	USDFoil  decimal.NullDecimal `json:"usdFoil"`
	EUR      decimal.NullDecimal `json:"eur"`
}

type scryfallCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Set    string `json:"set"`
	Prices struct {
		USD     decimal.NullDecimal `json:"usd"`
		USDFoil decimal.NullDecimal `json:"usd_foil"`
		EUR     decimal.NullDecimal `json:"eur"`
	} `json:"prices"`
}

type scryfallList struct {
	Data []scryfallCard `json:"data"`
}

// Search runs a full-text Scryfall query.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", models.ErrInvalidArgument)
	}
	return c.get(ctx, "/cards/search", url.Values{"q": {query}})
}

func (c *Client) Card(ctx context.Context, id string) (json.RawMessage, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: card id is required", models.ErrInvalidArgument)
	}
	return c.get(ctx, "/cards/"+url.PathEscape(id), nil)
}

// Prints lists every printing of the card with exactly this name.
func (c *Client) Prints(ctx context.Context, name string) (json.RawMessage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: card name is required", models.ErrInvalidArgument)
	}
	return c.get(ctx, "/cards/search", url.Values{
		"q":      {exactName(name)},
		"unique": {"prints"},
	})
}

// Price looks up the printing of name in setCode.
func (c *Client) Price(ctx context.Context, name, setCode string) (Price, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(setCode) == "" {
		return Price{}, fmt.Errorf("%w: card name and set are required", models.ErrInvalidArgument)
	}
	raw, err := c.get(ctx, "/cards/search", url.Values{"q": {exactName(name) + " set:" + setCode}})
	if err != nil {
		return Price{}, err
	}

	var list scryfallList
	if err := json.Unmarshal(raw, &list); err != nil {
		return Price{}, fmt.Errorf("failed to decode scryfall response: %w", err)
	}
	if len(list.Data) == 0 {
		return Price{}, fmt.Errorf("card %q in set %s: %w", name, setCode, models.ErrNotFound)
	}

	card := list.Data[0]
	return Price{
		CardID:   card.ID,
		CardName: card.Name,
		SetCode:  card.Set,
		USD:      card.Prices.USD,
		USDFoil:  card.Prices.USDFoil,
		EUR:      card.Prices.EUR,
	}, nil
}

func exactName(name string) string {
	return `!"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	key := "catalog:" + path + "?" + query.Encode()

	if cached, err := c.cache.Get(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		c.log.WithError(err).Warn("Catalog.Cache.Error")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach scryfall: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scryfall response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("scryfall %s: %w", path, models.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: scryfall rejected the query", models.ErrInvalidArgument)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("scryfall returned status %d: %s", resp.StatusCode, string(body))
	}
	if !json.Valid(body) {
		return nil, errors.New("scryfall returned invalid JSON")
	}

	if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
		c.log.WithError(err).Warn("Catalog.Cache.Error")
	}
	c.log.WithField("path", path).Debug("Catalog.Fetch.Complete")
	return body, nil
}
