package auth

import (
	"auditflow/internal/pipeline"
	"auditflow/internal/registry"
)

// Domain event symbols emitted by authentication operations.
const (
	EventAttempt       pipeline.Symbol = "auth.attempt"
	EventSuccess       pipeline.Symbol = "auth.success"
	EventFailure       pipeline.Symbol = "auth.failure"
	EventRateLimited   pipeline.Symbol = "auth.rate_limited"
	EventSessionCreate pipeline.Symbol = "session.create"
	EventSessionRevoke pipeline.Symbol = "session.revoke"
	EventTokenIssue    pipeline.Symbol = "token.issue"
	EventTokenRefresh  pipeline.Symbol = "token.refresh"
	EventCredVerify    pipeline.Symbol = "credential.verify"
	EventCredChange    pipeline.Symbol = "credential.change"
	EventAuthzCheck    pipeline.Symbol = "authz.check"
	EventAuthzAllow    pipeline.Symbol = "authz.allow"
	EventAuthzDeny     pipeline.Symbol = "authz.deny"
)

// Operation names as bound in the registry. Handlers and tests refer to
// these instead of string literals.
const (
	OpLogin          = "Login"
	OpRefresh        = "Refresh"
	OpChangePassword = "ChangePassword"
	OpAuthorize      = "Authorize"
	OpLogout         = "Logout"
)

// ServiceType is the Service's registered type name.
const ServiceType = "AuthService"

// Definition declares the audit contract of every Service operation. The
// registry checks it at startup; a missing or altered spec halts the process.
func Definition() registry.Definition {
	return registry.Definition{
		Type:       ServiceType,
		Operations: []string{OpLogin, OpRefresh, OpChangePassword, OpAuthorize, OpLogout},
		Specs: map[string]pipeline.Set{
			// A login either completes the full issuance chain or records
			// why it stopped: bad credentials, or throttled before the
			// credentials were ever checked.
			OpLogin: pipeline.OneOfPipelines(
				pipeline.Seq(EventAttempt, EventSuccess, EventSessionCreate, EventTokenIssue),
				pipeline.Seq(EventAttempt, pipeline.OneOfEvents(EventFailure, EventRateLimited)),
			),
			OpRefresh: pipeline.OneOfPipelines(
				pipeline.Seq(EventTokenRefresh, EventTokenIssue),
				pipeline.Seq(EventTokenRefresh, EventFailure),
			),
			// Password changes verify the old credential first, and a
			// successful change revokes every other session.
			OpChangePassword: pipeline.OneOfPipelines(
				pipeline.Seq(EventCredVerify, EventCredChange, EventSessionRevoke),
				pipeline.Seq(EventCredVerify, EventFailure),
			),
			OpAuthorize: pipeline.SetOf(
				pipeline.Seq(EventAuthzCheck, pipeline.OneOfEvents(EventAuthzAllow, EventAuthzDeny)),
			),
			OpLogout: pipeline.SetOf(
				pipeline.Begin(EventSessionRevoke),
			),
		},
	}
}
