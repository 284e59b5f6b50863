package bybit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// InstrumentInfo holds the lot size and leverage limits of one contract
type InstrumentInfo struct {
	Symbol         string `json:"symbol"`
	Status         string `json:"status"`
	BaseCoin       string `json:"baseCoin"`
	QuoteCoin      string `json:"quoteCoin"`
	ContractType   string `json:"contractType"`
	LeverageFilter struct {
		MinLeverage  string `json:"minLeverage"`
		MaxLeverage  string `json:"maxLeverage"`
		LeverageStep string `json:"leverageStep"`
	} `json:"leverageFilter"`
	PriceFilter struct {
		TickSize string `json:"tickSize"`
	} `json:"priceFilter"`
	LotSizeFilter struct {
		MinNotionalValue string `json:"minNotionalValue"`
		MaxOrderQty      string `json:"maxOrderQty"`
		MaxMktOrderQty   string `json:"maxMktOrderQty"`
		MinOrderQty      string `json:"minOrderQty"`
		QtyStep          string `json:"qtyStep"`
	} `json:"lotSizeFilter"`
}

type instrumentResult struct {
	Category string           `json:"category"`
	List     []InstrumentInfo `json:"list"`
}

// MaxLeverage returns the exchange leverage cap, or 0 when unknown
func (ii *InstrumentInfo) MaxLeverage() float64 {
	return parseFloat64(ii.LeverageFilter.MaxLeverage)
}

// InstrumentManager caches instrument information per symbol
type InstrumentManager struct {
	client         *Client
	instruments    map[string]cachedInstrument
	mutex          sync.RWMutex
	updateInterval time.Duration
}

type cachedInstrument struct {
	info      *InstrumentInfo
	fetchedAt time.Time
}

// NewInstrumentManager creates a new instrument manager
func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:         client,
		instruments:    make(map[string]cachedInstrument),
		updateInterval: time.Hour,
	}
}

// GetInstrumentInfo retrieves and caches instrument information
func (im *InstrumentManager) GetInstrumentInfo(ctx context.Context, symbol string) (*InstrumentInfo, error) {
	im.mutex.RLock()
	cached, exists := im.instruments[symbol]
	im.mutex.RUnlock()
	if exists && time.Since(cached.fetchedAt) < im.updateInterval {
		return cached.info, nil
	}

	params := map[string]interface{}{
		"category": CategoryLinear,
		"symbol":   symbol,
	}

	var result instrumentResult
	err := retry(ctx, im.client.retry, func() error {
		resp, err := im.client.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch instrument info: %w", err)
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, err
	}

	info, err := findInstrument(result, symbol)
	if err != nil {
		return nil, err
	}

	im.mutex.Lock()
	im.instruments[symbol] = cachedInstrument{info: info, fetchedAt: time.Now()}
	im.mutex.Unlock()

	return info, nil
}

func findInstrument(result instrumentResult, symbol string) (*InstrumentInfo, error) {
	for i := range result.List {
		if result.List[i].Symbol == symbol {
			info := result.List[i]
			return &info, nil
		}
	}
	return nil, fmt.Errorf("instrument %s not found", symbol)
}

// RoundQuantity floors qty to the instrument's lot step and caps it at the
// market order limit. A quantity that falls below the minimum after
// rounding is an error: it is never rounded up, since that would raise the
// amount at risk.
func (ii *InstrumentInfo) RoundQuantity(qty float64) (string, error) {
	step := parseFloat64(ii.LotSizeFilter.QtyStep)
	minQty := parseFloat64(ii.LotSizeFilter.MinOrderQty)
	maxQty := parseFloat64(ii.LotSizeFilter.MaxMktOrderQty)
	if maxQty == 0 {
		maxQty = parseFloat64(ii.LotSizeFilter.MaxOrderQty)
	}

	if maxQty > 0 && qty > maxQty {
		qty = maxQty
	}
	if step > 0 {
		// the epsilon keeps 0.3/0.1 from flooring to 2
		qty = math.Floor(qty/step+1e-9) * step
	}
	if qty <= 0 || qty < minQty {
		return "", fmt.Errorf("quantity %.8f for %s is below minimum %s", qty, ii.Symbol, ii.LotSizeFilter.MinOrderQty)
	}

	return strconv.FormatFloat(qty, 'f', stepDecimals(ii.LotSizeFilter.QtyStep), 64), nil
}

// stepDecimals returns the number of decimals in a step such as "0.001"
func stepDecimals(step string) int {
	i := strings.IndexByte(step, '.')
	if i < 0 {
		return 0
	}
	return len(strings.TrimRight(step[i+1:], "0"))
}
