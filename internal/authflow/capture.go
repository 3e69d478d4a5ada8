package authflow

import (
	"context"
	"errors"
	"log/slog"
)

// ErrCaptureTimeout is recorded when the capture source gives up waiting.
var ErrCaptureTimeout = errors.New("Otp Timedout !! Retry")

// Capture is one event from an OTP source: a code or an error.
type Capture struct {
	OTP string
	Err error
}

// OTPSource delivers OTP codes for a mobile number until ctx is canceled.
// The returned channel is closed when the source stops.
type OTPSource interface {
	Listen(ctx context.Context, mobile string) (<-chan Capture, error)
}

func (f *Flow) startCaptureLocked() {
	f.stopCaptureLocked()
	if f.source == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := f.source.Listen(ctx, f.status.Mobile)
	if err != nil {
		cancel()
		f.logger.Warn("otp capture unavailable", slog.Any("error", err))
		return
	}
	f.stopCapt = cancel
	go f.consume(ctx, ch)
}

func (f *Flow) stopCaptureLocked() {
	if f.stopCapt != nil {
		f.stopCapt()
		f.stopCapt = nil
	}
}

func (f *Flow) consume(ctx context.Context, ch <-chan Capture) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if c.Err != nil {
				f.setError(AwaitingOTP, c.Err)
				continue
			}
			if !otpPattern.MatchString(c.OTP) {
				f.logger.Debug("ignoring malformed captured otp")
				continue
			}
			_ = f.login(ctx, c.OTP)
		}
	}
}
