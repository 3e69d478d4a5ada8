package customer

import "github.com/fieldops/fieldops/internal/dto"

// Customer is a company owning registered products.
type Customer struct {
	ID       string
	Name     string
	Address  string
	GST      string
	Pincode  int
	Email    string
	Mobile   string
	IsActive bool
	Audit    dto.Audit
}

// ToDTO converts a customer with its user count to the wire form.
func ToDTO(c Customer, users int) dto.Customer {
	return dto.Customer{
		ID:       c.ID,
		Name:     c.Name,
		Address:  c.Address,
		GST:      c.GST,
		Pincode:  c.Pincode,
		Email:    c.Email,
		Mobile:   c.Mobile,
		Users:    users,
		IsActive: c.IsActive,
		Audit:    c.Audit,
	}
}
