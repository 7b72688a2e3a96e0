package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/confluence/internal/modules/intake"
	"github.com/aristath/confluence/internal/modules/technicals"
)

func newTestRouter() (*chi.Mux, *intake.Service) {
	svc := intake.NewService(zerolog.Nop())
	structure := technicals.NewService(technicals.DefaultConfig(), zerolog.Nop())
	h := NewHandler(svc, structure, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r, svc
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAssetsEndpoint(t *testing.T) {
	router, svc := newTestRouter()

	body := `[{"symbol":"btcusdt","direction":"LONG","price":100,
		"dimensions":{"macro":{"source":"macro","score":70,"direction":"LONG","confidence":"HIGH"}}}]`
	rec := doRequest(t, router, http.MethodPost, "/api/intake/assets", body)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, 1, svc.Status().AssetCount)
	assert.Equal(t, []string{"BTCUSDT"}, svc.Status().Symbols)
}

func TestSubmitAssetsRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter()
	rec := doRequest(t, router, http.MethodPost, "/api/intake/assets", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAssetsRejectsMissingSymbol(t *testing.T) {
	router, _ := newTestRouter()
	rec := doRequest(t, router, http.MethodPost, "/api/intake/assets", `[{"price":100}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRegimeEndpoint(t *testing.T) {
	router, svc := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/api/intake/regime",
		`{"regime":"RISK_OFF","inflation_axis":0.4,"dollar_axis":0.8,"confidence":"HIGH"}`)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "RISK_OFF", string(svc.Status().Regime))
}

func TestSubmitRegimeRejectsEmptyLabel(t *testing.T) {
	router, _ := newTestRouter()
	rec := doRequest(t, router, http.MethodPost, "/api/intake/regime", `{"inflation_axis":0.4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter()
	rec := doRequest(t, router, http.MethodGet, "/api/intake/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"asset_count":0`)
}

func TestRemoveAssetEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	body := `[{"symbol":"BTCUSDT","direction":"LONG","price":100}]`
	require.Equal(t, http.StatusAccepted,
		doRequest(t, router, http.MethodPost, "/api/intake/assets", body).Code)

	rec := doRequest(t, router, http.MethodDelete, "/api/intake/assets/btcusdt", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/intake/assets/btcusdt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// trendingCandles builds an oscillating uptrend with enough bars for the ATR
// and trend EMA windows.
func trendingCandles(n int) []technicals.Candle {
	candles := make([]technicals.Candle, n)
	for i := range candles {
		base := 80.0 + float64(i)*0.3 + 2.0*math.Sin(float64(i)/3.0)
		candles[i] = technicals.Candle{
			Open:   base,
			High:   base + 1.5,
			Low:    base - 1.5,
			Close:  base + 0.5,
			Volume: 1000,
		}
	}
	return candles
}

func TestSubmitCandlesEndpoint(t *testing.T) {
	router, svc := newTestRouter()

	body := `[{"symbol":"BTCUSDT","direction":"LONG","price":100}]`
	require.Equal(t, http.StatusAccepted,
		doRequest(t, router, http.MethodPost, "/api/intake/assets", body).Code)

	raw, err := json.Marshal(trendingCandles(80))
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/intake/assets/btcusdt/candles", string(raw))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	asset, ok := svc.Asset("BTCUSDT")
	require.True(t, ok)
	require.NotNil(t, asset.Structure, "candles submission must stage structure")
	assert.Greater(t, asset.Structure.ATR, 0.0)
}

func TestSubmitCandlesUnknownSymbol(t *testing.T) {
	router, _ := newTestRouter()

	raw, err := json.Marshal(trendingCandles(80))
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/intake/assets/ethusdt/candles", string(raw))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitCandlesTooFewBars(t *testing.T) {
	router, _ := newTestRouter()

	body := `[{"symbol":"BTCUSDT","direction":"LONG","price":100}]`
	require.Equal(t, http.StatusAccepted,
		doRequest(t, router, http.MethodPost, "/api/intake/assets", body).Code)

	raw, err := json.Marshal(trendingCandles(5))
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/api/intake/assets/btcusdt/candles", string(raw))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestClearAssetsEndpoint(t *testing.T) {
	router, svc := newTestRouter()

	body := `[{"symbol":"BTCUSDT","direction":"LONG","price":100}]`
	require.Equal(t, http.StatusAccepted,
		doRequest(t, router, http.MethodPost, "/api/intake/assets", body).Code)

	rec := doRequest(t, router, http.MethodDelete, "/api/intake/assets", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, svc.Status().AssetCount)
}
