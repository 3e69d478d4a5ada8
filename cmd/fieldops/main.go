// Command fieldops is the terminal front-end of the field-service API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fieldops/fieldops/internal/config"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/gateway"
	"github.com/fieldops/fieldops/internal/logging"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":     {"log in with a mobile number and OTP", runLogin},
	"logout":    {"end the session", runLogout},
	"whoami":    {"show the logged in user", runWhoami},
	"register":  {"register a new customer", runRegister},
	"customers": {"list, update customers or list staff", runCustomers},
	"users":     {"create or update staff", runUsers},
	"engineers": {"list, create or update engineers", runEngineers},
	"machines":  {"list or save machines", runMachines},
	"parts":     {"list, save or assign spare parts", runParts},
	"products":  {"list or save registered products", runProducts},
	"requests":  {"list, show, create, approve or close service requests", runRequests},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage()
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		return 2
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		return 1
	}
	defer a.close()

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		report(err)
		return 1
	}
	return 0
}

func report(err error) {
	if fe, ok := form.AsFieldErrors(err); ok {
		keys := make([]string, 0, len(fe))
		for k := range fe {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(os.Stderr, "%s: %s\n", k, fe[k])
		}
		return
	}
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		fmt.Fprintln(os.Stderr, gerr.Message)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(os.Stderr, "usage: fieldops <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
}
