package fieldapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/gateway"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL + "/api/v1/"})
	require.NoError(t, err)
	return New(gw)
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginSendsNumericOTPAndStoresToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/login":
			var raw map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			assert.Equal(t, "9876543210", raw["mobile"])
			assert.Equal(t, float64(12345), raw["otp"])
			reply(w, http.StatusOK, dto.LoginResponse{User: dto.User{ID: "u1"}, Token: "tok"})
		case "/api/v1/profile":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			reply(w, http.StatusOK, dto.ProfileResponse{User: dto.User{ID: "u1", Role: dto.RoleAdmin}})
		}
	})

	resp, err := c.Login(context.Background(), dto.LoginRequest{Mobile: "9876543210", OTP: 12345})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "tok", c.Gateway().Token())

	user, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dto.RoleAdmin, user.Role)
}

func TestSendOTPValidatesFirst(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	err := c.SendOTP(context.Background(), dto.SendOTPRequest{Mobile: "123"})
	fe, ok := form.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "mobile must be 10 digits", fe["mobile"])
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestLogoutClearsTokenOnFailure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusInternalServerError, dto.Error{Message: "boom"})
	})
	c.Gateway().SetToken("tok")
	err := c.Logout(context.Background())
	assert.Error(t, err)
	assert.Empty(t, c.Gateway().Token())
}

func TestMachineSaveUsesPutForExisting(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/machines/m1", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Contains(t, r.FormValue("body"), `"model":"LT-200"`)
		assert.Len(t, r.MultipartForm.File["file"], 1)
		reply(w, http.StatusOK, dto.Machine{ID: "m1", Name: "Lathe", Model: "LT-200"})
	})

	m, err := c.Machines.Save(context.Background(), "m1",
		dto.CreateOrEditMachine{Name: "Lathe", Model: "LT-200"},
		&Upload{Name: "lathe.png", Content: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
}

func TestRequestCreateIsAlwaysMultipart(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Contains(t, r.FormValue("body"), `"product":"p1"`)
		reply(w, http.StatusCreated, dto.ServiceRequest{ID: "r1", RequestID: "SR-0001"})
	})

	sr, err := c.Requests.Create(context.Background(), dto.NewServiceRequest{Product: "p1", Problem: "noise"})
	require.NoError(t, err)
	assert.Equal(t, "SR-0001", sr.RequestID)
}

func TestAssignMachinesValidation(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})
	err := c.Parts.AssignMachines(context.Background(), dto.AssignMachinesToParts{Flag: dto.FlagAssign})
	fe, ok := form.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Select machines", fe["machine_ids"])
	assert.Equal(t, "Select parts", fe["part_ids"])
}

func TestPartPriceIsJSONNumber(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, 249.5, raw["price"])
		reply(w, http.StatusCreated, map[string]any{"_id": "p1", "price": 249.5})
	})

	part, err := c.Parts.Save(context.Background(), "",
		dto.CreateOrEditSparePart{Name: "Belt", PartNo: "B-1", Price: decimal.RequireFromString("249.50")}, nil)
	require.NoError(t, err)
	assert.True(t, part.Price.Equal(decimal.RequireFromString("249.5")))
}

func TestDropdown(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/dropdown/products", r.URL.Path)
		reply(w, http.StatusOK, []dto.DropDown{{ID: "p1", Label: "SN-1"}})
	})
	items, err := c.Products.Dropdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []dto.DropDown{{ID: "p1", Label: "SN-1"}}, items)
}
