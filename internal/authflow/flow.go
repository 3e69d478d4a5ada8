// Package authflow drives mobile OTP login: the user submits a mobile
// number, an OTP is issued, and the OTP (captured automatically or typed)
// is exchanged for an identity that is written into the session store.
package authflow

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"sync"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/logging"
	"github.com/fieldops/fieldops/internal/session"
)

// Step is a state of the login flow.
type Step int

const (
	EnteringMobile Step = iota
	AwaitingOTP
	Authenticated
)

func (s Step) String() string {
	switch s {
	case EnteringMobile:
		return "entering_mobile"
	case AwaitingOTP:
		return "awaiting_otp"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// NoticeOTPSent is recorded after a successful resend.
const NoticeOTPSent = "Otp sent successfully"

var (
	// ErrWrongStep is returned when an action does not apply to the current step.
	ErrWrongStep = errors.New("authflow: action not allowed in current step")

	otpPattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// API is the part of the field API the flow needs.
type API interface {
	SendOTP(ctx context.Context, req dto.SendOTPRequest) error
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
}

// Status is a snapshot of the flow.
type Status struct {
	Step   Step
	Mobile string
	Err    error
	Notice string
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) { f.logger = logging.Component(logger, "authflow") }
}

// WithSource sets the OTP capture source subscribed while awaiting an OTP.
func WithSource(src OTPSource) Option {
	return func(f *Flow) { f.source = src }
}

// Flow is safe for concurrent use. Captured codes arrive on a listener
// goroutine while manual submissions come from the caller.
type Flow struct {
	api    API
	store  *session.Store
	source OTPSource
	logger *slog.Logger

	mu       sync.Mutex
	status   Status
	stopCapt context.CancelFunc
	done     chan struct{}
	subs     map[int]func(Status)
	nextSub  int
}

// New returns a flow in EnteringMobile.
func New(api API, store *session.Store, opts ...Option) *Flow {
	f := &Flow{
		api:    api,
		store:  store,
		logger: logging.Discard(),
		done:   make(chan struct{}),
		subs:   make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Status returns the current snapshot.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Done is closed once the flow reaches Authenticated.
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// Subscribe registers fn for status changes.
func (f *Flow) Subscribe(fn func(Status)) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// SubmitMobile validates mobile and asks the API to issue an OTP. Field
// errors are returned as form.FieldErrors and nothing is sent.
func (f *Flow) SubmitMobile(ctx context.Context, mobile string) error {
	req := dto.SendOTPRequest{Mobile: mobile}
	if err := form.Validate(req); err != nil {
		f.setError(EnteringMobile, err)
		return err
	}
	if f.Status().Step != EnteringMobile {
		return ErrWrongStep
	}

	if err := f.api.SendOTP(ctx, req); err != nil {
		f.logger.Info("sendotp rejected", slog.String("mobile", mobile), slog.Any("error", err))
		f.setError(EnteringMobile, err)
		return err
	}

	f.mu.Lock()
	if f.status.Step != EnteringMobile {
		f.mu.Unlock()
		return ErrWrongStep
	}
	f.status = Status{Step: AwaitingOTP, Mobile: mobile}
	f.startCaptureLocked()
	f.notifyLocked()
	return nil
}

// SubmitOTP sends a manually entered code.
func (f *Flow) SubmitOTP(ctx context.Context, code string) error {
	if !otpPattern.MatchString(code) {
		err := form.FieldErrors{"otp": "otp must be 6 digits"}
		f.setError(AwaitingOTP, err)
		return err
	}
	return f.login(ctx, code)
}

// Resend asks for a new OTP for the held mobile number.
func (f *Flow) Resend(ctx context.Context) error {
	st := f.Status()
	if st.Step != AwaitingOTP {
		return ErrWrongStep
	}
	if err := f.api.SendOTP(ctx, dto.SendOTPRequest{Mobile: st.Mobile}); err != nil {
		f.setError(AwaitingOTP, err)
		return err
	}

	f.mu.Lock()
	if f.status.Step != AwaitingOTP {
		f.mu.Unlock()
		return ErrWrongStep
	}
	f.status.Err = nil
	f.status.Notice = NoticeOTPSent
	f.startCaptureLocked()
	f.notifyLocked()
	return nil
}

// Close leaves the OTP step: the capture listener is stopped and the held
// mobile number is discarded. A closed flow can be reused from
// EnteringMobile unless it already authenticated.
func (f *Flow) Close() {
	f.mu.Lock()
	f.stopCaptureLocked()
	if f.status.Step == Authenticated {
		f.mu.Unlock()
		return
	}
	f.status = Status{Step: EnteringMobile}
	f.notifyLocked()
}

func (f *Flow) login(ctx context.Context, code string) error {
	st := f.Status()
	if st.Step != AwaitingOTP {
		return ErrWrongStep
	}
	otp, err := strconv.Atoi(code)
	if err != nil {
		return err
	}

	resp, err := f.api.Login(ctx, dto.LoginRequest{Mobile: st.Mobile, OTP: otp})
	if err != nil {
		f.logger.Info("login rejected", slog.String("mobile", st.Mobile), slog.Any("error", err))
		f.mu.Lock()
		if f.status.Step != AwaitingOTP || f.status.Mobile != st.Mobile {
			f.mu.Unlock()
			return err
		}
		f.status.Err = err
		f.status.Notice = ""
		f.startCaptureLocked()
		f.notifyLocked()
		return err
	}

	f.mu.Lock()
	if f.status.Step != AwaitingOTP {
		f.mu.Unlock()
		return ErrWrongStep
	}
	f.stopCaptureLocked()
	user := resp.User
	f.store.SetUser(&user)
	f.status = Status{Step: Authenticated}
	close(f.done)
	f.notifyLocked()
	return nil
}

func (f *Flow) setError(step Step, err error) {
	f.mu.Lock()
	if f.status.Step != step {
		f.mu.Unlock()
		return
	}
	f.status.Err = err
	f.status.Notice = ""
	f.notifyLocked()
}

// notifyLocked releases f.mu before calling subscribers.
func (f *Flow) notifyLocked() {
	st := f.status
	subs := make([]func(Status), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}
