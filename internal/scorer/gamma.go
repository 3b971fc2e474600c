// Package scorer discovers candidate markets from the Gamma API, filters
// them down to ones worth quoting, and ranks them with the weighted
// component scorer (see scorer.go).
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"predictmm/internal/config"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// GammaMarket is the JSON shape returned by the Gamma API.
type GammaMarket struct {
	ID                    string  `json:"id"`
	Question              string  `json:"question"`
	ConditionID           string  `json:"conditionId"`
	Slug                  string  `json:"slug"`
	Active                bool    `json:"active"`
	Closed                bool    `json:"closed"`
	AcceptingOrders       bool    `json:"acceptingOrders"`
	EnableOrderBook       bool    `json:"enableOrderBook"`
	EndDate               string  `json:"endDate"`
	Liquidity             string  `json:"liquidity"`
	Volume24hr            float64 `json:"volume24hr"`
	Outcomes              string  `json:"outcomes"`
	OutcomePrices         string  `json:"outcomePrices"`
	ClobTokenIds          string  `json:"clobTokenIds"`
	NegRisk               bool    `json:"negRisk"`
	Spread                float64 `json:"spread"`
	BestBid               float64 `json:"bestBid"`
	BestAsk               float64 `json:"bestAsk"`
	LastTradePrice        float64 `json:"lastTradePrice"`
	OrderPriceMinTickSize float64 `json:"orderPriceMinTickSize"`
	OrderMinSize          float64 `json:"orderMinSize"`
	RewardsMinSize        float64 `json:"rewardsMinSize"`
	RewardsMaxSpread      float64 `json:"rewardsMaxSpread"`
}

// GammaClient fetches and filters candidate markets from the Gamma API.
// It does not score or rank; that's Scorer's job.
type GammaClient struct {
	http *resty.Client
	cfg  config.ScannerConfig
}

// NewGammaClient builds a client pointed at baseURL.
func NewGammaClient(baseURL string, cfg config.ScannerConfig) *GammaClient {
	return &GammaClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		cfg: cfg,
	}
}

// FetchCandidates pages through the Gamma markets endpoint, applies hard
// filters, and converts survivors to MarketInfo.
func (g *GammaClient) FetchCandidates(ctx context.Context) ([]types.MarketInfo, error) {
	raw, err := g.fetchMarkets(ctx)
	if err != nil {
		return nil, err
	}
	filtered := g.filterMarkets(raw)
	out := make([]types.MarketInfo, 0, len(filtered))
	for _, m := range filtered {
		out = append(out, convertToMarketInfo(m))
	}
	return out, nil
}

func (g *GammaClient) fetchMarkets(ctx context.Context) ([]GammaMarket, error) {
	var allMarkets []GammaMarket
	offset := 0
	limit := 100

	for {
		var page []GammaMarket
		resp, err := g.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"limit":  strconv.Itoa(limit),
				"offset": strconv.Itoa(offset),
				"active": "true",
				"closed": "false",
			}).
			SetResult(&page).
			Get("/markets")
		if err != nil {
			return nil, fmt.Errorf("fetch markets page %d: %w", offset, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("fetch markets: status %d", resp.StatusCode())
		}

		allMarkets = append(allMarkets, page...)

		if len(page) < limit {
			break
		}
		offset += limit
	}

	return allMarkets, nil
}

// filterMarkets applies hard filters: inactive, closed, not accepting
// orders, no order book, optional include filters, excluded slugs/keywords,
// insufficient liquidity/volume, end date too near or too far, missing
// token IDs. Spread and price band rejection happen in the scorer, which
// needs to report *why* a market scored zero rather than silently dropping it.
func (g *GammaClient) filterMarkets(markets []GammaMarket) []GammaMarket {
	excluded := toLowerSet(g.cfg.ExcludeSlugs)
	includeConditionIDs := toLowerSet(g.cfg.IncludeConditionIDs)
	includeSlugs := toLowerSet(g.cfg.IncludeSlugs)
	includeKeywords := toLowerList(g.cfg.IncludeKeywords)
	excludeKeywords := toLowerList(g.cfg.ExcludeKeywords)

	hasIncludeFilter := len(includeConditionIDs) > 0 || len(includeSlugs) > 0 || len(includeKeywords) > 0

	now := time.Now()
	maxEnd := now.AddDate(0, 0, g.cfg.MaxEndDateDays)

	var result []GammaMarket
	for _, m := range markets {
		if !m.Active || m.Closed || !m.AcceptingOrders || !m.EnableOrderBook {
			continue
		}

		slugLower := strings.ToLower(m.Slug)
		questionLower := strings.ToLower(m.Question)
		conditionLower := strings.ToLower(m.ConditionID)

		if hasIncludeFilter {
			matched := includeConditionIDs[conditionLower] || includeSlugs[slugLower]
			if !matched {
				for _, kw := range includeKeywords {
					if strings.Contains(slugLower, kw) || strings.Contains(questionLower, kw) {
						matched = true
						break
					}
				}
			}
			if !matched {
				continue
			}
		}

		if excluded[slugLower] {
			continue
		}
		excludedByKeyword := false
		for _, kw := range excludeKeywords {
			if strings.Contains(slugLower, kw) || strings.Contains(questionLower, kw) {
				excludedByKeyword = true
				break
			}
		}
		if excludedByKeyword {
			continue
		}

		liquidity, _ := strconv.ParseFloat(m.Liquidity, 64)
		if liquidity < g.cfg.MinLiquidity {
			continue
		}
		if m.Volume24hr < g.cfg.MinVolume24h {
			continue
		}

		if m.EndDate != "" {
			endDate, err := time.Parse(time.RFC3339, m.EndDate)
			if err != nil {
				continue
			}
			if endDate.Before(now) || endDate.After(maxEnd) {
				continue
			}
		}

		if m.ClobTokenIds == "" {
			continue
		}

		result = append(result, m)
	}

	return result
}

// convertToMarketInfo transforms a Gamma API response into the internal
// MarketInfo type, parsing JSON-encoded token IDs and mapping the numeric
// tick size to the TickSize enum.
func convertToMarketInfo(gm GammaMarket) types.MarketInfo {
	liquidity, _ := strconv.ParseFloat(gm.Liquidity, 64)

	var tokenIDs []string
	if gm.ClobTokenIds != "" {
		var ids []string
		if err := json.Unmarshal([]byte(gm.ClobTokenIds), &ids); err == nil {
			tokenIDs = ids
		}
	}

	var yesToken, noToken string
	if len(tokenIDs) >= 2 {
		yesToken = tokenIDs[0]
		noToken = tokenIDs[1]
	}

	var tickSize types.TickSize
	switch gm.OrderPriceMinTickSize {
	case 0.1:
		tickSize = types.Tick01
	case 0.001:
		tickSize = types.Tick0001
	case 0.0001:
		tickSize = types.Tick00001
	default:
		tickSize = types.Tick001
	}

	endDate, _ := time.Parse(time.RFC3339, gm.EndDate)

	return types.MarketInfo{
		ID:               gm.ID,
		ConditionID:      gm.ConditionID,
		Slug:             gm.Slug,
		Question:         gm.Question,
		YesTokenID:       yesToken,
		NoTokenID:        noToken,
		TickSize:         tickSize,
		MinOrderSize:     money.SizeFromFloat(gm.OrderMinSize),
		NegRisk:          gm.NegRisk,
		Active:           gm.Active,
		Closed:           gm.Closed,
		AcceptingOrders:  gm.AcceptingOrders,
		EndDate:          endDate,
		Liquidity:        liquidity,
		Volume24h:        gm.Volume24hr,
		BestBid:          money.PriceFromFloat(gm.BestBid),
		BestAsk:          money.PriceFromFloat(gm.BestAsk),
		LastTradePrice:   money.PriceFromFloat(gm.LastTradePrice),
		RewardsMinSize:   gm.RewardsMinSize,
		RewardsMaxSpread: gm.RewardsMaxSpread,
	}
}

func toLowerSet(in []string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = true
		}
	}
	return out
}

func toLowerList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
