package machine

import "github.com/fieldops/fieldops/internal/dto"

// Machine is a model that products are registered against.
type Machine struct {
	ID       string
	Name     string
	Model    string
	Photo    string
	IsActive bool
	Audit    dto.Audit
}

// ToDTO converts a machine to its wire form.
func ToDTO(m Machine) dto.Machine {
	return dto.Machine{ID: m.ID, Name: m.Name, Model: m.Model, Photo: m.Photo, IsActive: m.IsActive, Audit: m.Audit}
}
