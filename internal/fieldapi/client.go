// Package fieldapi wraps every endpoint of the field-service API. Inputs are
// validated before any request is made.
package fieldapi

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/gateway"
)

// Client groups the resource APIs over one gateway.
type Client struct {
	gw *gateway.Client

	Customers *Customers
	Users     *Users
	Machines  *Machines
	Parts     *Parts
	Products  *Products
	Requests  *Requests
}

// New builds a Client on gw.
func New(gw *gateway.Client) *Client {
	return &Client{
		gw:        gw,
		Customers: &Customers{gw: gw},
		Users:     &Users{gw: gw},
		Machines:  &Machines{gw: gw},
		Parts:     &Parts{gw: gw},
		Products:  &Products{gw: gw},
		Requests:  &Requests{gw: gw},
	}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *gateway.Client {
	return c.gw
}

// SendOTP asks the API to send an OTP to the mobile number.
func (c *Client) SendOTP(ctx context.Context, req dto.SendOTPRequest) error {
	if err := form.Validate(req); err != nil {
		return err
	}
	return c.gw.Post(ctx, "sendotp", req, nil)
}

// Login exchanges an OTP for a session. The returned token is attached to
// later requests.
func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := form.Validate(req); err != nil {
		return dto.LoginResponse{}, err
	}
	var resp dto.LoginResponse
	if err := c.gw.Post(ctx, "login", req, &resp); err != nil {
		return dto.LoginResponse{}, err
	}
	if resp.Token != "" {
		c.gw.SetToken(resp.Token)
	}
	return resp, nil
}

// Logout ends the session on the server and drops local credentials
// whatever the outcome.
func (c *Client) Logout(ctx context.Context) error {
	defer c.gw.ClearSession()
	return c.gw.Post(ctx, "logout", nil, nil)
}

// Profile returns the logged in user.
func (c *Client) Profile(ctx context.Context) (dto.User, error) {
	var resp dto.ProfileResponse
	if err := c.gw.Get(ctx, "profile", nil, &resp); err != nil {
		return dto.User{}, err
	}
	return resp.User, nil
}

// DevOTP reads the development backend's OTP inbox.
func (c *Client) DevOTP(ctx context.Context, mobile string) (string, error) {
	var resp dto.DevOTPResponse
	if err := c.gw.Get(ctx, "dev/otp", map[string]string{"mobile": mobile}, &resp); err != nil {
		return "", err
	}
	return resp.OTP, nil
}

// Upload is a file attached to a save call.
type Upload struct {
	Name    string
	Content io.Reader
}

func files(field string, uploads ...Upload) []gateway.File {
	out := make([]gateway.File, 0, len(uploads))
	for _, u := range uploads {
		if u.Content == nil {
			continue
		}
		out = append(out, gateway.File{Field: field, Name: u.Name, Content: u.Content})
	}
	return out
}

// save posts a new resource when id is empty and puts an existing one
// otherwise.
func save(ctx context.Context, gw *gateway.Client, base, id string, body any, fs []gateway.File, out any) error {
	method, path := http.MethodPost, base
	if id != "" {
		method, path = http.MethodPut, base+"/"+url.PathEscape(id)
	}
	if len(fs) > 0 {
		return gw.Upload(ctx, method, path, body, fs, out)
	}
	return gw.Do(ctx, gateway.Request{Method: method, Path: path, Body: body}, out)
}

func dropdown(ctx context.Context, gw *gateway.Client, kind string) ([]dto.DropDown, error) {
	var out []dto.DropDown
	if err := gw.Get(ctx, "dropdown/"+kind, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
