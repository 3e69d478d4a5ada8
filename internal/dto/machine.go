package dto

import "github.com/shopspring/decimal"

// Machine is a machine model that products are registered against.
type Machine struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Model    string `json:"model"`
	Photo    string `json:"photo"`
	IsActive bool   `json:"is_active"`
	Audit
}

// CreateOrEditMachine creates or edits a machine.
type CreateOrEditMachine struct {
	Name  string `json:"name" validate:"required,max=100" msg:"required=Required"`
	Model string `json:"model" validate:"required" msg:"required=Required"`
}

// SparePart is a part compatible with one or more machines.
type SparePart struct {
	ID                 string          `json:"_id"`
	Name               string          `json:"name"`
	PartNo             string          `json:"partno"`
	Photo              string          `json:"photo"`
	Price              decimal.Decimal `json:"price"`
	CompatibleMachines []DropDown      `json:"compatible_machines"`
	IsActive           bool            `json:"is_active"`
	Audit
}

// CreateOrEditSparePart creates or edits a spare part.
type CreateOrEditSparePart struct {
	Name   string          `json:"name" validate:"required,max=100" msg:"required=Required"`
	PartNo string          `json:"partno" validate:"required" msg:"required=Required"`
	Price  decimal.Decimal `json:"price"`
}

// Assignment flags for AssignMachinesToParts.
const (
	FlagRemove = 0
	FlagAssign = 1
)

// AssignMachinesToParts links or unlinks machines and parts.
type AssignMachinesToParts struct {
	MachineIDs []string `json:"machine_ids" validate:"required,min=1" msg:"required=Select machines,min=Select machines"`
	PartIDs    []string `json:"part_ids" validate:"required,min=1" msg:"required=Select parts,min=Select parts"`
	Flag       int      `json:"flag" validate:"oneof=0 1" msg:"oneof=flag must be 0 or 1"`
}
