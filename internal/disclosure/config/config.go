// Package config holds tuning for the OTP challenge lifecycle.
package config

import "time"

// Challenge captures the timing and validation rules of one OTP challenge.
type Challenge struct {
	// CooldownSeconds is the minimum wait between OTP issuance requests for the
	// same case code. Applied on challenge creation and after each resend.
	CooldownSeconds int

	// DismissDelay is how long a successful challenge stays visible before it
	// dismisses itself and hands the record to the disclosure view.
	DismissDelay time.Duration

	// MinOTPLength is enforced locally before the upstream verifier is called.
	MinOTPLength int

	// TickInterval drives the cooldown countdown. One second in production;
	// tests shorten it to keep countdown assertions fast.
	TickInterval time.Duration
}

// Default returns the production challenge configuration.
func Default() Challenge {
	return Challenge{
		CooldownSeconds: 60,
		DismissDelay:    1500 * time.Millisecond,
		MinOTPLength:    6,
		TickInterval:    time.Second,
	}
}

// CooldownWindow returns the cooldown as a duration, for the issuance throttle.
func (c Challenge) CooldownWindow() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}
