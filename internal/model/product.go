package model

type Product struct {
	BaseModel
	ProductName        string `gorm:"type:varchar(255);not null" json:"product_name" validate:"required"`
	ProductMeasurement string `gorm:"type:varchar(50);not null" json:"product_measurement" validate:"required"`
	Quantity           int    `gorm:"not null;default:0" json:"quantity" validate:"gte=0"`
	Photo              string `gorm:"type:text" json:"photo"`
}

// ProductPatch carries a partial product update. Nil fields are left as-is.
type ProductPatch struct {
	ProductName        *string `json:"product_name,omitempty" validate:"omitempty,min=1"`
	ProductMeasurement *string `json:"product_measurement,omitempty" validate:"omitempty,min=1"`
	Quantity           *int    `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Photo              *string `json:"photo,omitempty"`
}

// Apply copies the non-nil fields of the patch onto p.
func (patch ProductPatch) Apply(p *Product) {
	if patch.ProductName != nil {
		p.ProductName = *patch.ProductName
	}
	if patch.ProductMeasurement != nil {
		p.ProductMeasurement = *patch.ProductMeasurement
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.Photo != nil {
		p.Photo = *patch.Photo
	}
}
