package auth

import (
	"github.com/mdblp/libreview-exporter/common"
)

// StepKind is a document the user must accept before being fully authenticated
type StepKind string

const (
	StepTermsOfUse    StepKind = "tou"
	StepPrivacyPolicy StepKind = "pp"
)

func parseStepKind(value string) (StepKind, bool) {
	switch StepKind(value) {
	case StepTermsOfUse, StepPrivacyPolicy:
		return StepKind(value), true
	}
	return "", false
}

func (s StepKind) DisplayName() string {
	switch s {
	case StepTermsOfUse:
		return "Terms of Use"
	case StepPrivacyPolicy:
		return "Privacy Policy"
	}
	return string(s)
}

type OutcomeKind int

const (
	Success OutcomeKind = iota
	StepRequired
	Failure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case StepRequired:
		return "step_required"
	}
	return "failure"
}

// LoginOutcome is the result of a login or of a document acceptance.
// Token is set for Success and StepRequired, Step only for StepRequired,
// Err only for Failure.
type LoginOutcome struct {
	Kind  OutcomeKind
	Token string
	Step  StepKind
	Err   *common.DetailedError
}

func successOutcome(token string) LoginOutcome {
	return LoginOutcome{Kind: Success, Token: token}
}

func stepRequiredOutcome(step StepKind, token string) LoginOutcome {
	return LoginOutcome{Kind: StepRequired, Step: step, Token: token}
}

func failureOutcome(err *common.DetailedError) LoginOutcome {
	return LoginOutcome{Kind: Failure, Err: err}
}

// State of an AuthSession
type State int

const (
	Unauthenticated State = iota
	AwaitingConsent
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AwaitingConsent:
		return "awaiting_consent"
	case Authenticated:
		return "authenticated"
	}
	return "failed"
}
