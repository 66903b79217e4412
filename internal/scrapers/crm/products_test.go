package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"crmlookup/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	body   string
	err    error
	path   string
	params map[string]string
}

func (f *fakeGetter) Get(_ context.Context, path string, params map[string]string) (map[string]any, error) {
	f.path = path
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	var body map[string]any
	err := json.Unmarshal([]byte(f.body), &body)
	return body, err
}

func intPtr(v int) *int {
	return &v
}

const priceListBody = `{
	"results": [
		{
			"lineId": 11, "productId": "501", "productModel": "TL-SG2210P", "productName": "8口PoE交换机",
			"price": "1299", "wholesalePrice": 1100.5, "catalogPrice": "1499",
			"businessDiscount": "0.8~0.75", "brandValue": "TP-LINK", "seriesValue": "商用",
			"lifeCycle": "A", "lifeCycleMeaning": "在售", "startQty": 10, "endQty": "99",
			"valid": true, "lastUpdateDate": "2024-04-01"
		},
		{
			"lineId": 12, "productId": 501, "productModel": "TL-SG2210P",
			"price": 1250, "businessDiscount": "0.8~0.75", "startQty": "1", "endQty": 9, "valid": "Y"
		},
		{
			"lineId": 13, "productModel": "TL-SG2210P-AC", "price": 0, "businessDiscount": "0.8~0.75",
			"startQty": 1, "valid": false
		},
		{
			"lineId": 14, "productModel": "TL-SG2210P", "price": 1100, "startQty": 100
		},
		{
			"lineId": 15, "productModel": "", "price": 10
		},
		{
			"lineId": 16, "productModel": "tl-sg2210p-v2", "price": "abc", "businessDiscount": "bad"
		}
	]
}`

func TestSearch(t *testing.T) {
	api := &fakeGetter{body: priceListBody}
	products := NewProducts(api, "", "", telemetry.NewTestAPI(), fixedClock)

	records, err := products.Search(context.Background(), "tl-sg2210p", 0)
	require.NoError(t, err)

	expected := []ProductRecord{
		{
			Model:             "TL-SG2210P",
			ProductID:         501,
			LineID:            12,
			Price:             1250,
			DiscountBand:      "0.8~0.75",
			HighDiscountPrice: intPtr(1000),
			LowDiscountPrice:  intPtr(940),
			StartQty:          1,
			EndQty:            9,
			Valid:             true,
			ExactMatch:        true,
		},
		{
			Model:        "TL-SG2210P-AC",
			LineID:       13,
			DiscountBand: "0.8~0.75",
			StartQty:     1,
		},
		{
			Model:        "tl-sg2210p-v2",
			LineID:       16,
			DiscountBand: "bad",
		},
	}
	require.Empty(t, cmp.Diff(expected, records))

	require.Equal(t, DefaultPriceQueryPath, api.path)
	require.Equal(t, "tl-sg2210p", api.params["blurValue"])
	require.Equal(t, "50", api.params["limit"])
	require.Equal(t, "0", api.params["start"])
	require.Equal(t, strconv.FormatInt(fixedClock.Time.UnixMilli(), 10), api.params["_dc"])
}

func TestParseProductFields(t *testing.T) {
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(priceListBody), &body))
	record := parseProduct(rows(body)[0], "TL-SG2210P")

	expected := ProductRecord{
		Model:             "TL-SG2210P",
		Name:              "8口PoE交换机",
		ProductID:         501,
		LineID:            11,
		Brand:             "TP-LINK",
		Series:            "商用",
		LifeCycle:         "A",
		LifeCycleMeaning:  "在售",
		Price:             1299,
		WholesalePrice:    1100.5,
		CatalogPrice:      1499,
		DiscountBand:      "0.8~0.75",
		HighDiscountPrice: intPtr(1040),
		LowDiscountPrice:  intPtr(975),
		StartQty:          10,
		EndQty:            99,
		Valid:             true,
		LastUpdateDate:    "2024-04-01",
		ExactMatch:        true,
	}
	require.Empty(t, cmp.Diff(expected, record))
}

func TestSearchRowKeys(t *testing.T) {
	table := []struct {
		body     string
		expected int
	}{
		{body: `{"data": [{"productModel": "A"}, {"productModel": "B"}]}`, expected: 2},
		{body: `{"list": [{"productModel": "A"}]}`, expected: 1},
		{body: `{"results": null, "list": [{"productModel": "A"}]}`, expected: 1},
		{body: `{"message": "nothing"}`, expected: 0},
		{body: `{"results": [1, "x", {"productModel": "A"}]}`, expected: 1},
	}
	for _, row := range table {
		products := NewProducts(&fakeGetter{body: row.body}, "", "", telemetry.NewTestAPI(), fixedClock)
		records, err := products.Search(context.Background(), "A", 10)
		require.NoError(t, err)
		require.Len(t, records, row.expected, row.body)
	}
}

func TestSearchFailure(t *testing.T) {
	tel := telemetry.NewTestAPI()
	products := NewProducts(&fakeGetter{err: ErrSessionExpired}, "", "", tel, fixedClock)

	records, err := products.Search(context.Background(), "TL-SG2210P", 10)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.NotNil(t, records)
	require.Empty(t, records)
	require.True(t, tel.Has("warning", report_products_search))

	records, err = products.Search(context.Background(), "  ", 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestInventory(t *testing.T) {
	api := &fakeGetter{body: `{
		"results": [
			{"model": "TL-SG2210P", "productName": "交换机", "lifeCycle": "在售", "invName": "上海仓",
			 "qty": 120, "orderIntransitNum": "30", "todayOutQty": 5, "boxNumber": "10", "priceInfo": "含税"},
			{"productModel": "tl-sg2210p", "lifeCycleMeaning": "停产", "invName": "深圳仓",
			 "quantity": "7", "inTransitQty": 2},
			{"model": "TL-SG2210P-AC", "invName": "北京仓", "qty": 3}
		]
	}`}
	products := NewProducts(api, "", "/custom/inventory", telemetry.NewTestAPI(), fixedClock)

	records, err := products.Inventory(context.Background(), " TL-SG2210P ")
	require.NoError(t, err)
	expected := []InventoryRecord{
		{
			Model:            "TL-SG2210P",
			Name:             "交换机",
			LifeCycleMeaning: "在售",
			SubInventory:     "上海仓",
			Quantity:         120,
			InTransit:        30,
			TodayOut:         5,
			BoxNumber:        "10",
			PriceInfo:        "含税",
		},
		{
			Model:            "tl-sg2210p",
			LifeCycleMeaning: "停产",
			SubInventory:     "深圳仓",
			Quantity:         7,
			InTransit:        2,
		},
	}
	require.Empty(t, cmp.Diff(expected, records))
	require.Equal(t, "/custom/inventory", api.path)
	require.Equal(t, "TL-SG2210P", api.params["productModel"])
	require.Equal(t, "true", api.params["showPrice"])

	failing := NewProducts(&fakeGetter{err: errors.New("boom")}, "", "", telemetry.NewTestAPI(), fixedClock)
	records, err = failing.Inventory(context.Background(), "TL-SG2210P")
	require.Error(t, err)
	require.Equal(t, []InventoryRecord{}, records)
}

func TestSearchThroughClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, map[string]any{"sessionInfo": map[string]any{}})
	})
	mux.HandleFunc("/api/line/findByPage", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(priceListBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx := context.Background()
	client, _ := newTestClient(t, server, "")
	_, err := client.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	products := NewProducts(client, "", "", telemetry.NewTestAPI(), fixedClock)
	records, err := products.Search(ctx, "TL-SG2210P", 20)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.True(t, records[0].ExactMatch)
}
