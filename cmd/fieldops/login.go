package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fieldops/fieldops/internal/authflow"
	"github.com/fieldops/fieldops/internal/gateway"
	"github.com/fieldops/fieldops/internal/navigation"
)

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	mobile := fs.String("mobile", "", "10 digit mobile number (defaults to the last one used)")
	devInbox := fs.Bool("dev-otp", a.cfg.DevOTPInbox, "read the OTP from the development backend inbox")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.Login); err != nil {
		return err
	}

	lines := readLines(ctx)
	if *mobile == "" {
		saved, _ := a.local.Load()
		*mobile = prompt(ctx, lines, "Mobile", saved.Mobile)
	}

	manual := &authflow.ManualSource{}
	var source authflow.OTPSource = manual
	if *devInbox {
		source = &authflow.InboxSource{Fetch: a.api.DevOTP}
	}
	flow := authflow.New(a.api, a.store, authflow.WithSource(source), authflow.WithLogger(a.logger))
	defer flow.Close()

	if err := flow.SubmitMobile(ctx, *mobile); err != nil {
		return err
	}
	if err := a.local.RememberMobile(*mobile); err != nil {
		a.logger.Warn("remember mobile", "error", err)
	}
	if err := a.gate.Navigate(navigation.OTPVerify); err != nil {
		return err
	}

	unsubscribe := flow.Subscribe(func(st authflow.Status) {
		switch {
		case st.Err != nil:
			fmt.Fprintln(os.Stderr, gateway.Message(st.Err))
		case st.Notice != "":
			fmt.Fprintln(os.Stderr, st.Notice)
		}
	})
	defer unsubscribe()

	fmt.Fprintf(os.Stderr, "OTP sent to %s. Enter the code, or \"r\" to resend.\n", *mobile)
	for {
		select {
		case <-flow.Done():
			if err := a.saveSession(); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Printf("Logged in as %s (%s)\n", a.store.User().Username, a.store.User().Role)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// Input closed: keep waiting for a captured code.
				lines = nil
				continue
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case strings.EqualFold(line, "r"):
				_ = flow.Resend(ctx)
			case *devInbox:
				_ = flow.SubmitOTP(ctx, line)
			default:
				if err := manual.Push(line); err != nil {
					_ = flow.SubmitOTP(ctx, line)
				}
			}
		}
	}
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := a.enter(ctx, navigation.Profile); err != nil {
		return err
	}
	err := a.store.Logout(ctx, a.api.Logout)
	if clearErr := a.local.ClearSession(); clearErr != nil {
		a.logger.Warn("clear saved session", "error", clearErr)
	}
	if err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, navigation.Profile); err != nil {
		return err
	}
	u := a.store.User()
	if *asJSON {
		return printJSON(u)
	}
	customer := ""
	if u.Customer != nil {
		customer = u.Customer.Label
	}
	return printTable([]string{"ID", "USERNAME", "MOBILE", "EMAIL", "ROLE", "CUSTOMER"},
		[][]string{{u.ID, u.Username, u.Mobile, u.Email, u.Role, customer}})
}

func readLines(ctx context.Context) chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func prompt(ctx context.Context, lines <-chan string, label, def string) string {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}
	select {
	case line, ok := <-lines:
		if !ok {
			return def
		}
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
		return def
	case <-ctx.Done():
		return def
	}
}
