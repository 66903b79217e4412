package crm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Keys of a price list row.
const (
	fieldLineID           = "lineId"
	fieldProductID        = "productId"
	fieldLineCode         = "lineCode"
	fieldProductModel     = "productModel"
	fieldProductName      = "productName"
	fieldPrice            = "price"
	fieldWholesalePrice   = "wholesalePrice"
	fieldCatalogPrice     = "catalogPrice"
	fieldBusinessDiscount = "businessDiscount"
	fieldBrand            = "brandValue"
	fieldSeries           = "seriesValue"
	fieldLifeCycle        = "lifeCycle"
	fieldLifeCycleMeaning = "lifeCycleMeaning"
	fieldStartQty         = "startQty"
	fieldEndQty           = "endQty"
	fieldValid            = "valid"
	fieldCreationDate     = "creationDate"
	fieldLastUpdateDate   = "lastUpdateDate"
)

// Keys of an inventory row, the first key present wins.
var (
	inventoryModel            = []string{"model", "productModel"}
	inventoryName             = []string{"productName"}
	inventoryLifeCycleMeaning = []string{"lifeCycle", "lifeCycleMeaning"}
	inventorySubInventory     = []string{"invName"}
	inventoryQuantity         = []string{"qty", "quantity"}
	inventoryInTransit        = []string{"orderIntransitNum", "inTransitQty"}
	inventoryTodayOut         = []string{"todayOutQty"}
	inventoryBoxNumber        = []string{"boxNumber"}
	inventoryPriceInfo        = []string{"priceInfo"}
)

// rowsKeys are the keys a response may carry its rows under, in order.
var rowsKeys = []string{"results", "data", "list"}

// row is a single loosely typed JSON object from the CRM. The CRM is not
// consistent about sending numbers as numbers or strings, so the accessors
// coerce and fall back to zero values.
type row map[string]any

func (r row) value(keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r row) asString(keys ...string) string {
	v, ok := r.value(keys...)
	if !ok {
		return ""
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r row) asFloat(keys ...string) float64 {
	v, ok := r.value(keys...)
	if !ok {
		return 0
	}
	switch v := v.(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (r row) asInt(keys ...string) int {
	return int(r.asFloat(keys...))
}

func (r row) asBool(keys ...string) bool {
	v, ok := r.value(keys...)
	if !ok {
		return false
	}
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "n", "no":
			return false
		}
		return true
	default:
		return false
	}
}

// rows returns the rows under the first rows key whose value is a list.
func rows(body map[string]any) []row {
	for _, key := range rowsKeys {
		list, ok := body[key].([]any)
		if !ok {
			continue
		}
		out := make([]row, 0, len(list))
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, row(obj))
		}
		return out
	}
	return []row{}
}
