package crm

import (
	"context"
	"strconv"
	"strings"

	"crmlookup/internal/components/assert"
	"crmlookup/internal/components/chrono"
	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/pricing"
)

const (
	DefaultPriceQueryPath     = "/api/line/findByPage"
	DefaultInventoryQueryPath = "/api/inv/findInvQtyTab"
	DefaultSearchLimit        = 50
)

const (
	report_products_search    = "products.search"
	report_products_inventory = "products.inventory"
)

// Getter is the part of Client that Products needs.
type Getter interface {
	Get(ctx context.Context, path string, params map[string]string) (map[string]any, error)
}

// Products queries the price list and the inventory.
type Products struct {
	api            Getter
	tel            telemetry.API
	clock          chrono.API
	priceQuery     string
	inventoryQuery string
}

// NewProducts creates a Products, empty paths fall back to the Default*
// constants.
func NewProducts(api Getter, priceQuery, inventoryQuery string, tel telemetry.API, clock chrono.API) Products {
	assert.NotNil(api)
	assert.NotNil(tel)
	assert.NotNil(clock)

	if priceQuery == "" {
		priceQuery = DefaultPriceQueryPath
	}
	if inventoryQuery == "" {
		inventoryQuery = DefaultInventoryQueryPath
	}
	return Products{
		api:            api,
		tel:            telemetry.NewScopedAPI("crm_products", tel),
		clock:          clock,
		priceQuery:     priceQuery,
		inventoryQuery: inventoryQuery,
	}
}

// cacheBuster is the "_dc" param the CRM's web client sends.
func (p Products) cacheBuster() string {
	return strconv.FormatInt(p.clock.Now().UnixMilli(), 10)
}

// Search returns the price list rows matching model. Rows are deduplicated
// per model keeping the lowest quantity tier, in the order the models first
// appear. The returned slice is never nil, on error it is empty.
func (p Products) Search(ctx context.Context, model string, limit int) ([]ProductRecord, error) {
	if strings.TrimSpace(model) == "" {
		return []ProductRecord{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	body, err := p.api.Get(ctx, p.priceQuery, map[string]string{
		"_dc":       p.cacheBuster(),
		"blurValue": model,
		"undefined": "on",
		"start":     "0",
		"limit":     strconv.Itoa(limit),
	})
	if err != nil {
		p.tel.ReportWarning(report_products_search, err, model)
		return []ProductRecord{}, err
	}

	var records []ProductRecord
	for _, r := range rows(body) {
		records = append(records, parseProduct(r, model))
	}
	records = dedupe(records)
	p.tel.ReportDebug("products found", model, len(records))
	return records, nil
}

func parseProduct(r row, query string) ProductRecord {
	record := ProductRecord{
		Model:            r.asString(fieldProductModel),
		Name:             r.asString(fieldProductName),
		ProductID:        r.asInt(fieldProductID),
		LineID:           r.asInt(fieldLineID),
		LineCode:         r.asString(fieldLineCode),
		Brand:            r.asString(fieldBrand),
		Series:           r.asString(fieldSeries),
		LifeCycle:        r.asString(fieldLifeCycle),
		LifeCycleMeaning: r.asString(fieldLifeCycleMeaning),
		Price:            r.asFloat(fieldPrice),
		WholesalePrice:   r.asFloat(fieldWholesalePrice),
		CatalogPrice:     r.asFloat(fieldCatalogPrice),
		DiscountBand:     r.asString(fieldBusinessDiscount),
		StartQty:         r.asInt(fieldStartQty),
		EndQty:           r.asInt(fieldEndQty),
		Valid:            r.asBool(fieldValid),
		CreationDate:     r.asString(fieldCreationDate),
		LastUpdateDate:   r.asString(fieldLastUpdateDate),
	}
	record.ExactMatch = strings.EqualFold(record.Model, strings.TrimSpace(query))
	record.HighDiscountPrice, record.LowDiscountPrice = pricing.DeriveDiscounts(record.Price, record.DiscountBand)
	return record
}

// dedupe keeps one record per model, the one with the lowest StartQty. Rows
// without a model are dropped.
func dedupe(records []ProductRecord) []ProductRecord {
	out := []ProductRecord{}
	index := map[string]int{}
	for _, r := range records {
		if r.Model == "" {
			continue
		}
		i, ok := index[r.Model]
		if !ok {
			index[r.Model] = len(out)
			out = append(out, r)
			continue
		}
		if r.StartQty < out[i].StartQty {
			out[i] = r
		}
	}
	return out
}

// Inventory returns the warehouse stock rows of exactly model, ignoring case.
// The returned slice is never nil, on error it is empty.
func (p Products) Inventory(ctx context.Context, model string) ([]InventoryRecord, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return []InventoryRecord{}, nil
	}

	body, err := p.api.Get(ctx, p.inventoryQuery, map[string]string{
		"_dc":                          p.cacheBuster(),
		"blurValue":                    "",
		"invIdList":                    "",
		"productModel":                 model,
		"brandIdList":                  "",
		"seriesIdList":                 "",
		"firstCategoryInternalIdList":  "",
		"secondCategoryInternalIdList": "",
		"showPrice":                    "true",
		"start":                        "0",
	})
	if err != nil {
		p.tel.ReportWarning(report_products_inventory, err, model)
		return []InventoryRecord{}, err
	}

	out := []InventoryRecord{}
	for _, r := range rows(body) {
		rowModel := r.asString(inventoryModel...)
		if !strings.EqualFold(rowModel, model) {
			continue
		}
		out = append(out, InventoryRecord{
			Model:            rowModel,
			Name:             r.asString(inventoryName...),
			LifeCycleMeaning: r.asString(inventoryLifeCycleMeaning...),
			SubInventory:     r.asString(inventorySubInventory...),
			Quantity:         r.asInt(inventoryQuantity...),
			InTransit:        r.asInt(inventoryInTransit...),
			TodayOut:         r.asInt(inventoryTodayOut...),
			BoxNumber:        r.asString(inventoryBoxNumber...),
			PriceInfo:        r.asString(inventoryPriceInfo...),
		})
	}
	p.tel.ReportDebug("inventory rows found", model, len(out))
	return out, nil
}
