// internal/models/sales.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Placeholder is the "nothing chosen" entry at the top of every select input.
const Placeholder = "-Select-"

const (
	ColItemWeight              = "Item_Weight"
	ColItemFatContent          = "Item_Fat_Content"
	ColItemVisibility          = "Item_Visibility"
	ColItemType                = "Item_Type"
	ColItemMRP                 = "Item_MRP"
	ColOutletEstablishmentYear = "Outlet_Establishment_Year"
	ColOutletSize              = "Outlet_Size"
	ColOutletLocationType      = "Outlet_Location_Type"
	ColOutletType              = "Outlet_Type"
)

// Columns is the order the regressor was fitted on. Any permutation silently
// changes what the model sees.
var Columns = []string{
	ColItemWeight,
	ColItemFatContent,
	ColItemVisibility,
	ColItemType,
	ColItemMRP,
	ColOutletEstablishmentYear,
	ColOutletSize,
	ColOutletLocationType,
	ColOutletType,
}

const (
	MinEstablishmentYear = 1950
	MaxEstablishmentYear = 2024
)

var (
	FatContentOptions = []string{Placeholder, "Low Fat", "Regular", "Non-Edible"}

	ItemTypeOptions = []string{
		Placeholder,
		"Baking Goods", "Breads", "Breakfast", "Canned", "Dairy",
		"Frozen Foods", "Fruits and Vegetables", "Hard Drinks",
		"Health and Hygiene", "Household", "Meat", "Others",
		"Seafood", "Snack Foods", "Soft Drinks", "Starchy Foods",
	}

	OutletSizeOptions         = []string{Placeholder, "Small", "Medium", "High"}
	OutletLocationTypeOptions = []string{Placeholder, "Tier 1", "Tier 2", "Tier 3"}
	OutletTypeOptions         = []string{Placeholder, "Grocery Store", "Supermarket Type1", "Supermarket Type2", "Supermarket Type3"}
)

// PredictionRequest is one form submission. JSON keys are the training column
// names so job variables and API bodies map one to one.
type PredictionRequest struct {
	ItemWeight              float64 `json:"Item_Weight"`
	ItemFatContent          string  `json:"Item_Fat_Content"`
	ItemVisibility          float64 `json:"Item_Visibility"`
	ItemType                string  `json:"Item_Type"`
	ItemMRP                 float64 `json:"Item_MRP"`
	OutletEstablishmentYear int     `json:"Outlet_Establishment_Year"`
	OutletSize              string  `json:"Outlet_Size"`
	OutletLocationType      string  `json:"Outlet_Location_Type"`
	OutletType              string  `json:"Outlet_Type"`
}

// DecodeRequest decodes a JSON document into a PredictionRequest. A
// whole-valued year such as 1999.0 is accepted; decode failures name the
// offending column.
func DecodeRequest(data []byte) (PredictionRequest, error) {
	type plain PredictionRequest
	var doc struct {
		plain
		OutletEstablishmentYear *json.Number `json:"Outlet_Establishment_Year"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return PredictionRequest{}, fmt.Errorf("%s: cannot use %s value", typeErr.Field, typeErr.Value)
		}
		return PredictionRequest{}, fmt.Errorf("malformed request: %v", err)
	}

	req := PredictionRequest(doc.plain)
	if doc.OutletEstablishmentYear != nil {
		year, err := doc.OutletEstablishmentYear.Float64()
		if err != nil || year != math.Trunc(year) || math.Abs(year) > math.MaxInt32 {
			return PredictionRequest{}, fmt.Errorf("%s: must be an integer, got %s", ColOutletEstablishmentYear, doc.OutletEstablishmentYear.String())
		}
		req.OutletEstablishmentYear = int(year)
	}
	return req, nil
}

// NewPredictionRequest returns a request holding the form's initial values.
func NewPredictionRequest() PredictionRequest {
	return PredictionRequest{
		ItemFatContent:          Placeholder,
		ItemType:                Placeholder,
		OutletEstablishmentYear: MinEstablishmentYear,
		OutletSize:              Placeholder,
		OutletLocationType:      Placeholder,
		OutletType:              Placeholder,
	}
}

// Values returns the field values in Columns order.
func (r PredictionRequest) Values() []interface{} {
	return []interface{}{
		r.ItemWeight,
		r.ItemFatContent,
		r.ItemVisibility,
		r.ItemType,
		r.ItemMRP,
		r.OutletEstablishmentYear,
		r.OutletSize,
		r.OutletLocationType,
		r.OutletType,
	}
}

// Record assembles the single-row record handed to the predictor.
func (r PredictionRequest) Record() Record {
	rec, _ := NewRecord(Columns, r.Values())
	return rec
}

// Placeholders lists the select fields still set to Placeholder.
func (r PredictionRequest) Placeholders() []string {
	var fields []string
	for _, f := range r.Record() {
		if s, ok := f.Value.(string); ok && s == Placeholder {
			fields = append(fields, f.Name)
		}
	}
	return fields
}

// Field is one named cell of a record.
type Field struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Record is an ordered row of named values.
type Record []Field

// NewRecord pairs column names with values positionally.
func NewRecord(columns []string, values []interface{}) (Record, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%d columns passed, passed data had %d values", len(columns), len(values))
	}
	rec := make(Record, len(columns))
	for i, name := range columns {
		rec[i] = Field{Name: name, Value: values[i]}
	}
	return rec, nil
}

// Names returns the column names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Get returns the value stored under name.
func (r Record) Get(name string) (interface{}, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// PredictionResult is what the form, the API and the worker hand back.
type PredictionResult struct {
	RequestID      string    `json:"requestId,omitempty"`
	PredictedSales float64   `json:"predictedSales"`
	Display        string    `json:"display"`
	ModelName      string    `json:"modelName,omitempty"`
	ModelVersion   string    `json:"modelVersion,omitempty"`
	Cached         bool      `json:"cached"`
	PredictedAt    time.Time `json:"predictedAt"`
}
