package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/fieldapi"
	"github.com/fieldops/fieldops/internal/navigation"
	"github.com/fieldops/fieldops/internal/search"
)

var errUsage = errors.New("invalid arguments, see -h")

// listFlags are shared by the list subcommands.
type listFlags struct {
	query  string
	asJSON bool
}

func (l *listFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&l.query, "q", "", "fuzzy filter")
	fs.BoolVar(&l.asJSON, "json", false, "print JSON")
}

func subcommand(args []string, def string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args
	}
	return args[0], args[1:]
}

func openUpload(path string) (*fieldapi.Upload, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return &fieldapi.Upload{Name: filepath.Base(path), Content: f}, func() { f.Close() }, nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var in dto.CreateOrEditCustomer
	fs.StringVar(&in.Name, "name", "", "company name")
	fs.StringVar(&in.Address, "address", "", "address")
	fs.StringVar(&in.GST, "gst", "", "15 character GST number")
	fs.IntVar(&in.Pincode, "pincode", 0, "6 digit pincode")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Mobile, "mobile", "", "10 digit mobile number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.Register); err != nil {
		return err
	}
	c, err := a.api.Customers.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s (%s). Log in with %s.\n", c.Name, c.ID, in.Mobile)
	return nil
}

func runCustomers(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	fs := flag.NewFlagSet("customers "+sub, flag.ContinueOnError)
	var lf listFlags
	lf.register(fs)
	var in dto.CreateOrEditCustomer
	id := fs.String("id", "", "customer id")
	if sub == "update" {
		fs.StringVar(&in.Name, "name", "", "company name")
		fs.StringVar(&in.Address, "address", "", "address")
		fs.StringVar(&in.GST, "gst", "", "GST number")
		fs.IntVar(&in.Pincode, "pincode", 0, "pincode")
		fs.StringVar(&in.Email, "email", "", "email")
		fs.StringVar(&in.Mobile, "mobile", "", "mobile number")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "list":
		if err := a.enter(ctx, navigation.Customers); err != nil {
			return err
		}
		items, err := a.api.Customers.List(ctx)
		if err != nil {
			return err
		}
		items = search.Filter(items, lf.query, search.CustomerKeys)
		if lf.asJSON {
			return printJSON(items)
		}
		rows := make([][]string, 0, len(items))
		for _, c := range items {
			rows = append(rows, []string{c.ID, c.Name, c.Mobile, c.Email, c.GST, strconv.Itoa(c.Users), yesNo(c.IsActive)})
		}
		return printTable([]string{"ID", "NAME", "MOBILE", "EMAIL", "GST", "USERS", "ACTIVE"}, rows)
	case "update":
		if *id == "" {
			return errUsage
		}
		if err := a.enter(ctx, navigation.CustomerDetails); err != nil {
			return err
		}
		c, err := a.api.Customers.Update(ctx, *id, in)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", c.Name)
		return nil
	case "staff":
		if err := a.enter(ctx, navigation.CustomerDetails); err != nil {
			return err
		}
		users, err := a.api.Customers.Staff(ctx)
		if err != nil {
			return err
		}
		return printUsers(users, lf.asJSON)
	default:
		return errUsage
	}
}

func userFlags(fs *flag.FlagSet, in *dto.CreateOrEditUser) {
	fs.StringVar(&in.Username, "username", "", "user name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Mobile, "mobile", "", "10 digit mobile number")
	fs.StringVar(&in.Role, "role", "", "role")
	fs.StringVar(&in.Customer, "customer", "", "customer id")
}

func printUsers(users []dto.User, asJSON bool) error {
	if asJSON {
		return printJSON(users)
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Username, u.Mobile, u.Email, u.Role, yesNo(u.IsActive)})
	}
	return printTable([]string{"ID", "USERNAME", "MOBILE", "EMAIL", "ROLE", "ACTIVE"}, rows)
}

func runUsers(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "")
	fs := flag.NewFlagSet("users "+sub, flag.ContinueOnError)
	var in dto.CreateOrEditUser
	userFlags(fs, &in)
	id := fs.String("id", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.CustomerDetails); err != nil {
		return err
	}
	var (
		u   dto.User
		err error
	)
	switch sub {
	case "create":
		u, err = a.api.Users.CreateStaff(ctx, in)
	case "update":
		if *id == "" {
			return errUsage
		}
		u, err = a.api.Users.UpdateStaff(ctx, *id, in)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s (%s)\n", u.Username, u.ID)
	return nil
}

func runEngineers(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	fs := flag.NewFlagSet("engineers "+sub, flag.ContinueOnError)
	var lf listFlags
	lf.register(fs)
	var in dto.CreateOrEditUser
	userFlags(fs, &in)
	id := fs.String("id", "", "engineer id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.Engineers); err != nil {
		return err
	}
	var (
		u   dto.User
		err error
	)
	switch sub {
	case "list":
		users, err := a.api.Users.Engineers(ctx)
		if err != nil {
			return err
		}
		return printUsers(users, lf.asJSON)
	case "create":
		u, err = a.api.Users.CreateEngineer(ctx, in)
	case "update":
		if *id == "" {
			return errUsage
		}
		u, err = a.api.Users.UpdateEngineer(ctx, *id, in)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s (%s)\n", u.Username, u.ID)
	return nil
}

func runMachines(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	fs := flag.NewFlagSet("machines "+sub, flag.ContinueOnError)
	var lf listFlags
	lf.register(fs)
	var in dto.CreateOrEditMachine
	fs.StringVar(&in.Name, "name", "", "machine name")
	fs.StringVar(&in.Model, "model", "", "model")
	id := fs.String("id", "", "machine id (update)")
	photo := fs.String("photo", "", "photo file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.Machines); err != nil {
		return err
	}

	switch sub {
	case "list":
		items, err := a.api.Machines.List(ctx)
		if err != nil {
			return err
		}
		items = search.Filter(items, lf.query, search.MachineKeys)
		if lf.asJSON {
			return printJSON(items)
		}
		rows := make([][]string, 0, len(items))
		for _, m := range items {
			rows = append(rows, []string{m.ID, m.Name, m.Model, yesNo(m.Photo != ""), yesNo(m.IsActive)})
		}
		return printTable([]string{"ID", "NAME", "MODEL", "PHOTO", "ACTIVE"}, rows)
	case "save":
		upload, done, err := openUpload(*photo)
		if err != nil {
			return err
		}
		defer done()
		m, err := a.api.Machines.Save(ctx, *id, in, upload)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%s)\n", m.Name, m.ID)
		return nil
	default:
		return errUsage
	}
}

func runParts(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	fs := flag.NewFlagSet("parts "+sub, flag.ContinueOnError)
	var lf listFlags
	lf.register(fs)
	var in dto.CreateOrEditSparePart
	fs.StringVar(&in.Name, "name", "", "part name")
	fs.StringVar(&in.PartNo, "partno", "", "part number")
	price := fs.String("price", "0", "price")
	id := fs.String("id", "", "part id (update)")
	photo := fs.String("photo", "", "photo file")
	machines := fs.String("machines", "", "comma separated machine ids (assign)")
	parts := fs.String("parts", "", "comma separated part ids (assign)")
	remove := fs.Bool("remove", false, "unlink instead of link (assign)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.Parts); err != nil {
		return err
	}

	switch sub {
	case "list":
		items, err := a.api.Parts.List(ctx)
		if err != nil {
			return err
		}
		items = search.Filter(items, lf.query, search.PartKeys)
		if lf.asJSON {
			return printJSON(items)
		}
		rows := make([][]string, 0, len(items))
		for _, p := range items {
			labels := make([]string, 0, len(p.CompatibleMachines))
			for _, m := range p.CompatibleMachines {
				labels = append(labels, m.Label)
			}
			rows = append(rows, []string{p.ID, p.Name, p.PartNo, money(p.Price), strings.Join(labels, ", ")})
		}
		return printTable([]string{"ID", "NAME", "PART NO", "PRICE", "MACHINES"}, rows)
	case "save":
		var err error
		if in.Price, err = decimal.NewFromString(*price); err != nil {
			return fmt.Errorf("invalid price: %w", err)
		}
		upload, done, err := openUpload(*photo)
		if err != nil {
			return err
		}
		defer done()
		p, err := a.api.Parts.Save(ctx, *id, in, upload)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%s)\n", p.Name, p.ID)
		return nil
	case "assign":
		req := dto.AssignMachinesToParts{
			MachineIDs: splitIDs(*machines),
			PartIDs:    splitIDs(*parts),
			Flag:       dto.FlagAssign,
		}
		if *remove {
			req.Flag = dto.FlagRemove
		}
		if err := a.api.Parts.AssignMachines(ctx, req); err != nil {
			return err
		}
		fmt.Println("Updated compatible machines")
		return nil
	default:
		return errUsage
	}
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func runProducts(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	fs := flag.NewFlagSet("products "+sub, flag.ContinueOnError)
	var lf listFlags
	lf.register(fs)
	var in dto.CreateOrEditRegisteredProduct
	fs.StringVar(&in.Customer, "customer", "", "customer id")
	fs.StringVar(&in.SerialNo, "serial", "", "serial number")
	fs.StringVar(&in.Machine, "machine", "", "machine id")
	fs.BoolVar(&in.IsInstalled, "installed", false, "product is installed")
	id := fs.String("id", "", "product id (update)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.Products); err != nil {
		return err
	}

	switch sub {
	case "list":
		items, err := a.api.Products.List(ctx)
		if err != nil {
			return err
		}
		items = search.Filter(items, lf.query, search.ProductKeys)
		if lf.asJSON {
			return printJSON(items)
		}
		rows := make([][]string, 0, len(items))
		for _, p := range items {
			rows = append(rows, []string{p.ID, p.SerialNo, p.Machine.Label, p.Customer.Label, yesNo(p.IsInstalled), date(p.InstallationDate), date(p.WarrantyUpto)})
		}
		return printTable([]string{"ID", "SERIAL", "MACHINE", "CUSTOMER", "INSTALLED", "INSTALLED ON", "WARRANTY"}, rows)
	case "save":
		p, err := a.api.Products.Save(ctx, *id, in)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%s)\n", p.SerialNo, p.ID)
		return nil
	default:
		return errUsage
	}
}

func runRequests(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	fs := flag.NewFlagSet("requests "+sub, flag.ContinueOnError)
	var lf listFlags
	lf.register(fs)
	id := fs.String("id", "", "request id")
	product := fs.String("product", "", "product id (create)")
	problem := fs.String("problem", "", "problem description (create)")
	engineer := fs.String("engineer", "", "engineer id (approve)")
	code := fs.String("code", "", "happy code (close)")
	mode := fs.String("payment-mode", "none", "cash, upi, card, cheque or none (close)")
	payable := fs.String("payable", "0", "payable amount (close)")
	paid := fs.String("paid", "0", "paid amount (close)")
	var media stringList
	fs.Var(&media, "file", "photo or video to attach, repeatable (create)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	route := navigation.ServiceRequests
	if sub != "list" && sub != "create" {
		route = navigation.ServiceRequestDetails
	}
	if err := a.enter(ctx, route); err != nil {
		return err
	}

	switch sub {
	case "list":
		items, err := a.api.Requests.List(ctx)
		if err != nil {
			return err
		}
		items = search.Filter(items, lf.query, search.RequestKeys)
		if lf.asJSON {
			return printJSON(items)
		}
		return printRequests(items)
	case "show":
		if *id == "" {
			return errUsage
		}
		sr, err := a.api.Requests.Get(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(sr)
	case "create":
		uploads := make([]fieldapi.Upload, 0, len(media))
		for _, path := range media {
			up, done, err := openUpload(path)
			if err != nil {
				return err
			}
			defer done()
			uploads = append(uploads, *up)
		}
		sr, err := a.api.Requests.Create(ctx, dto.NewServiceRequest{Product: *product, Problem: *problem}, uploads...)
		if err != nil {
			return err
		}
		fmt.Printf("Opened %s\n", sr.RequestID)
		return nil
	case "approve":
		if *id == "" {
			return errUsage
		}
		sr, err := a.api.Requests.Approve(ctx, *id, dto.ApproveServiceRequest{Engineer: *engineer})
		if err != nil {
			return err
		}
		fmt.Printf("Approved %s\n", sr.RequestID)
		return nil
	case "close":
		if *id == "" {
			return errUsage
		}
		in := dto.CloseServiceRequest{Code: *code, PaymentMode: *mode, PaymentDate: time.Now().UTC()}
		var err error
		if in.PayableAmount, err = decimal.NewFromString(*payable); err != nil {
			return fmt.Errorf("invalid payable amount: %w", err)
		}
		if in.PaidAmount, err = decimal.NewFromString(*paid); err != nil {
			return fmt.Errorf("invalid paid amount: %w", err)
		}
		sr, err := a.api.Requests.Close(ctx, *id, in)
		if err != nil {
			return err
		}
		fmt.Printf("Closed %s\n", sr.RequestID)
		return nil
	default:
		return errUsage
	}
}

func printRequests(items []dto.ServiceRequest) error {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		engineer := "-"
		if r.AssignedEngineer != nil {
			engineer = r.AssignedEngineer.Label
		}
		status := "open"
		switch {
		case r.ClosedOn != nil:
			status = "closed"
		case r.IsApproved:
			status = "approved"
		}
		rows = append(rows, []string{r.ID, r.RequestID, r.Customer.Label, r.Machine.Label, r.Problem, status, engineer})
	}
	return printTable([]string{"ID", "REQUEST", "CUSTOMER", "MACHINE", "PROBLEM", "STATUS", "ENGINEER"}, rows)
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
