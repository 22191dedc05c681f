package valueobject

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Address is the shipping address carried on an order.
// Fields are exported so the address can be embedded in a GORM model with a column prefix.
type Address struct {
	Line1      string `gorm:"type:varchar(255);not null" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2,omitempty"`
	City       string `gorm:"type:varchar(100);not null" json:"city"`
	Region     string `gorm:"type:varchar(100)" json:"region,omitempty"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Country    string `gorm:"type:varchar(100)" json:"country,omitempty"`
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithLine2 sets the second address line
func WithLine2(line2 string) AddressOption {
	return func(a *Address) {
		a.Line2 = strings.TrimSpace(line2)
	}
}

// WithRegion sets the region or province
func WithRegion(region string) AddressOption {
	return func(a *Address) {
		a.Region = strings.TrimSpace(region)
	}
}

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.PostalCode = strings.TrimSpace(postalCode)
	}
}

// WithCountry sets the country for the address
func WithCountry(country string) AddressOption {
	return func(a *Address) {
		a.Country = strings.TrimSpace(country)
	}
}

// NewAddress creates a new Address. Line1 and city are required.
func NewAddress(line1, city string, opts ...AddressOption) (Address, error) {
	a := Address{
		Line1: strings.TrimSpace(line1),
		City:  strings.TrimSpace(city),
	}
	for _, opt := range opts {
		opt(&a)
	}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Validate checks required fields and lengths
func (a Address) Validate() error {
	if a.Line1 == "" {
		return errors.New("address line1 cannot be empty")
	}
	if a.City == "" {
		return errors.New("address city cannot be empty")
	}
	if utf8.RuneCountInString(a.Line1) > 255 || utf8.RuneCountInString(a.Line2) > 255 {
		return errors.New("address line cannot exceed 255 characters")
	}
	if utf8.RuneCountInString(a.PostalCode) > 20 {
		return errors.New("postal code cannot exceed 20 characters")
	}
	return nil
}

// IsEmpty returns true if no field is set
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// String joins the non-empty parts with ", "
func (a Address) String() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.Region, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
