package http

import (
	"github.com/qwiksale/verify-api/internal/application/otp"
	jwtinfra "github.com/qwiksale/verify-api/internal/infrastructure/jwt"
	"github.com/qwiksale/verify-api/internal/transport/http/handler"
)

// Deps holds everything the router needs, constructed once in main.
type Deps struct {
	OTPService otp.Service

	// JWTProvider is optional; without it the session-derived identifier
	// fallback on issuance is simply unavailable.
	JWTProvider *jwtinfra.Provider

	// Backend is optional; the readiness check passes unconditionally when
	// the in-memory backend is in use.
	Backend handler.Pinger
}
