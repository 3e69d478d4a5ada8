package fieldapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/gateway"
)

// Customers wraps the customer endpoints.
type Customers struct{ gw *gateway.Client }

func (c *Customers) List(ctx context.Context) ([]dto.Customer, error) {
	var out []dto.Customer
	if err := c.gw.Get(ctx, "customers", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Customers) Dropdown(ctx context.Context) ([]dto.DropDown, error) {
	return dropdown(ctx, c.gw, "customers")
}

// Register creates a customer. It is open to unauthenticated callers.
func (c *Customers) Register(ctx context.Context, in dto.CreateOrEditCustomer) (dto.Customer, error) {
	if err := form.Validate(in); err != nil {
		return dto.Customer{}, err
	}
	var out dto.Customer
	if err := c.gw.Post(ctx, "customers", in, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Customers) Update(ctx context.Context, id string, in dto.CreateOrEditCustomer) (dto.Customer, error) {
	if err := form.Validate(in); err != nil {
		return dto.Customer{}, err
	}
	var out dto.Customer
	if err := c.gw.Put(ctx, "customers/"+url.PathEscape(id), in, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Staff lists the staff of the caller's customer.
func (c *Customers) Staff(ctx context.Context) ([]dto.User, error) {
	var out []dto.User
	if err := c.gw.Get(ctx, "customers/staff", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Users wraps staff and engineer management.
type Users struct{ gw *gateway.Client }

func (u *Users) CreateStaff(ctx context.Context, in dto.CreateOrEditUser) (dto.User, error) {
	return u.save(ctx, http.MethodPost, "users", in)
}

func (u *Users) UpdateStaff(ctx context.Context, id string, in dto.CreateOrEditUser) (dto.User, error) {
	return u.save(ctx, http.MethodPut, "users/"+url.PathEscape(id), in)
}

func (u *Users) Engineers(ctx context.Context) ([]dto.User, error) {
	var out []dto.User
	if err := u.gw.Get(ctx, "engineers", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (u *Users) CreateEngineer(ctx context.Context, in dto.CreateOrEditUser) (dto.User, error) {
	return u.save(ctx, http.MethodPost, "engineers", in)
}

func (u *Users) UpdateEngineer(ctx context.Context, id string, in dto.CreateOrEditUser) (dto.User, error) {
	return u.save(ctx, http.MethodPut, "engineers/"+url.PathEscape(id), in)
}

func (u *Users) save(ctx context.Context, method, path string, in dto.CreateOrEditUser) (dto.User, error) {
	if err := form.Validate(in); err != nil {
		return dto.User{}, err
	}
	var out dto.User
	if err := u.gw.Do(ctx, gateway.Request{Method: method, Path: path, Body: in}, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Machines wraps the machine endpoints.
type Machines struct{ gw *gateway.Client }

func (m *Machines) List(ctx context.Context) ([]dto.Machine, error) {
	var out []dto.Machine
	if err := m.gw.Get(ctx, "machines", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (m *Machines) Dropdown(ctx context.Context) ([]dto.DropDown, error) {
	return dropdown(ctx, m.gw, "machines")
}

// Save creates (empty id) or updates a machine with an optional photo.
func (m *Machines) Save(ctx context.Context, id string, in dto.CreateOrEditMachine, photo *Upload) (dto.Machine, error) {
	if err := form.Validate(in); err != nil {
		return dto.Machine{}, err
	}
	var fs []gateway.File
	if photo != nil {
		fs = files("file", *photo)
	}
	var out dto.Machine
	if err := save(ctx, m.gw, "machines", id, in, fs, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Parts wraps the spare part endpoints.
type Parts struct{ gw *gateway.Client }

func (p *Parts) List(ctx context.Context) ([]dto.SparePart, error) {
	var out []dto.SparePart
	if err := p.gw.Get(ctx, "parts", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (p *Parts) Dropdown(ctx context.Context) ([]dto.DropDown, error) {
	return dropdown(ctx, p.gw, "parts")
}

// Save creates (empty id) or updates a part with an optional photo.
func (p *Parts) Save(ctx context.Context, id string, in dto.CreateOrEditSparePart, photo *Upload) (dto.SparePart, error) {
	if err := form.Validate(in); err != nil {
		return dto.SparePart{}, err
	}
	var fs []gateway.File
	if photo != nil {
		fs = files("file", *photo)
	}
	var out dto.SparePart
	if err := save(ctx, p.gw, "parts", id, in, fs, &out); err != nil {
		return out, err
	}
	return out, nil
}

// AssignMachines links (FlagAssign) or unlinks (FlagRemove) machines and
// parts.
func (p *Parts) AssignMachines(ctx context.Context, in dto.AssignMachinesToParts) error {
	if err := form.Validate(in); err != nil {
		return err
	}
	return p.gw.Patch(ctx, "parts/machines/assign", in, nil)
}

// Products wraps the registered product endpoints.
type Products struct{ gw *gateway.Client }

func (p *Products) List(ctx context.Context) ([]dto.RegisteredProduct, error) {
	var out []dto.RegisteredProduct
	if err := p.gw.Get(ctx, "products", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (p *Products) Dropdown(ctx context.Context) ([]dto.DropDown, error) {
	return dropdown(ctx, p.gw, "products")
}

func (p *Products) Save(ctx context.Context, id string, in dto.CreateOrEditRegisteredProduct) (dto.RegisteredProduct, error) {
	if err := form.Validate(in); err != nil {
		return dto.RegisteredProduct{}, err
	}
	var out dto.RegisteredProduct
	if err := save(ctx, p.gw, "products", id, in, nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Requests wraps the service request endpoints.
type Requests struct{ gw *gateway.Client }

func (r *Requests) List(ctx context.Context) ([]dto.ServiceRequest, error) {
	var out []dto.ServiceRequest
	if err := r.gw.Get(ctx, "requests", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Requests) Get(ctx context.Context, id string) (dto.ServiceRequest, error) {
	var out dto.ServiceRequest
	if err := r.gw.Get(ctx, "requests/"+url.PathEscape(id), nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Create opens a service request with photos and videos attached.
func (r *Requests) Create(ctx context.Context, in dto.NewServiceRequest, media ...Upload) (dto.ServiceRequest, error) {
	if err := form.Validate(in); err != nil {
		return dto.ServiceRequest{}, err
	}
	var out dto.ServiceRequest
	if err := r.gw.Upload(ctx, http.MethodPost, "requests", in, files("files", media...), &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Requests) Approve(ctx context.Context, id string, in dto.ApproveServiceRequest) (dto.ServiceRequest, error) {
	if err := form.Validate(in); err != nil {
		return dto.ServiceRequest{}, err
	}
	var out dto.ServiceRequest
	if err := r.gw.Patch(ctx, "requests/"+url.PathEscape(id)+"/approve", in, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Requests) Close(ctx context.Context, id string, in dto.CloseServiceRequest) (dto.ServiceRequest, error) {
	if err := form.Validate(in); err != nil {
		return dto.ServiceRequest{}, err
	}
	var out dto.ServiceRequest
	if err := r.gw.Patch(ctx, "requests/"+url.PathEscape(id)+"/close", in, &out); err != nil {
		return out, err
	}
	return out, nil
}
