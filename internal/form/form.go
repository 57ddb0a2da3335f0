// Package form validates dashboard input before it is sent anywhere. Each
// form reports one message per field; an empty message means the field is
// fine.
package form

import (
	"fmt"
	"strings"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/pkg/validator"
)

// Errors maps a field's json name to its message.
type Errors map[string]string

// Valid reports whether every message is empty.
func (e Errors) Valid() bool {
	for _, msg := range e {
		if msg != "" {
			return false
		}
	}
	return true
}

var labels = map[string]string{
	"email":               "Email",
	"password":            "Password",
	"first_name":          "First name",
	"last_name":           "Last name",
	"identification":      "Identification",
	"role":                "Role",
	"product_name":        "Product name",
	"product_measurement": "Product measurement",
	"quantity":            "Quantity",
	"photo":               "Photo",
	"contractor":          "Contractor",
}

func message(e *validator.ErrorResponse) string {
	label := labels[e.Field]
	if label == "" {
		label = e.Field
	}
	switch e.Tag {
	case "required":
		return label + " is required."
	case "loose_email", "email":
		return label + " is not valid."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, e.Value)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", label, e.Value)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(e.Value, " ", ", "))
	}
	return label + " is not valid."
}

// check runs the struct rules and returns a message slot for every field.
func check(data interface{}, fields ...string) Errors {
	errs := make(Errors, len(fields))
	for _, f := range fields {
		errs[f] = ""
	}
	for _, e := range validator.ValidateStruct(data) {
		if errs[e.Field] == "" {
			errs[e.Field] = message(e)
		}
	}
	return errs
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,loose_email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (f LoginForm) Validate() Errors {
	return check(f, "email", "password")
}

type SignUpForm struct {
	Email          string     `json:"email" validate:"required,loose_email"`
	Password       string     `json:"password" validate:"required,min=6"`
	FirstName      string     `json:"first_name" validate:"required"`
	LastName       string     `json:"last_name" validate:"required"`
	Identification string     `json:"identification" validate:"required"`
	Role           model.Role `json:"role" validate:"required,oneof=admin user"`
}

func (f SignUpForm) Validate() Errors {
	return check(f, "email", "password", "first_name", "last_name", "identification", "role")
}

// Request builds the sign-up call; the profile's full name joins first and
// last name.
func (f SignUpForm) Request() model.SignUpRequest {
	return model.SignUpRequest{
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		Data: model.UserMetadata{
			Role:           f.Role,
			FullName:       strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName),
			Identification: strings.TrimSpace(f.Identification),
		},
	}
}

// ProductForm needs either an already uploaded photo URL or a file picked
// for upload.
type ProductForm struct {
	ProductName        string `json:"product_name" validate:"required"`
	ProductMeasurement string `json:"product_measurement" validate:"required"`
	Quantity           int    `json:"quantity" validate:"required,gt=0"`
	Photo              string `json:"photo"`
	HasFile            bool   `json:"-"`
}

func (f ProductForm) Validate() Errors {
	errs := check(f, "product_name", "product_measurement", "quantity", "photo")
	if f.Photo == "" && !f.HasFile {
		errs["photo"] = labels["photo"] + " is required."
	}
	return errs
}

func (f ProductForm) ToProduct() model.Product {
	return model.Product{
		ProductName:        strings.TrimSpace(f.ProductName),
		ProductMeasurement: strings.TrimSpace(f.ProductMeasurement),
		Quantity:           f.Quantity,
		Photo:              f.Photo,
	}
}
