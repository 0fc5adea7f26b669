package model

import "time"

// DeviceFlowStart is the provider's answer to a device-authorization
// request. It lives only for the duration of one authentication attempt.
type DeviceFlowStart struct {
	UserCode        string
	VerificationURI string
	DeviceCode      string
	ExpiresIn       time.Duration
	PollInterval    time.Duration
}
