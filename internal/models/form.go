// internal/models/form.go
package models

// FieldKind selects which input widget renders a field.
type FieldKind string

const (
	FieldNumber FieldKind = "number"
	FieldSelect FieldKind = "select"
)

// FormField describes one input control of the prediction form.
type FormField struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Step    float64   `json:"step,omitempty"`
	Integer bool      `json:"integer,omitempty"`
	Options []string  `json:"options,omitempty"`
}

func bound(v float64) *float64 { return &v }

// FormFields lists the inputs in column order.
var FormFields = []FormField{
	{Name: ColItemWeight, Label: "Item Weight (in kg)", Kind: FieldNumber, Min: bound(0), Step: 0.1},
	{Name: ColItemFatContent, Label: "Item Fat Content", Kind: FieldSelect, Options: FatContentOptions},
	{Name: ColItemVisibility, Label: "Item Visibility", Kind: FieldNumber, Min: bound(0), Max: bound(1), Step: 0.01},
	{Name: ColItemType, Label: "Item Type", Kind: FieldSelect, Options: ItemTypeOptions},
	{Name: ColItemMRP, Label: "Item MRP (in currency)", Kind: FieldNumber, Min: bound(0), Step: 1},
	{Name: ColOutletEstablishmentYear, Label: "Outlet Establishment Year", Kind: FieldNumber, Min: bound(MinEstablishmentYear), Max: bound(MaxEstablishmentYear), Step: 1, Integer: true},
	{Name: ColOutletSize, Label: "Outlet Size", Kind: FieldSelect, Options: OutletSizeOptions},
	{Name: ColOutletLocationType, Label: "Outlet Location Type", Kind: FieldSelect, Options: OutletLocationTypeOptions},
	{Name: ColOutletType, Label: "Outlet Type", Kind: FieldSelect, Options: OutletTypeOptions},
}
