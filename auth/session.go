package auth

import (
	"context"
	"log"

	"github.com/mdblp/libreview-exporter/client/libreview"
	"github.com/mdblp/libreview-exporter/common"
	"github.com/mdblp/libreview-exporter/schema"
)

// MaxConsentSteps bounds the number of documents accepted in one flow
const MaxConsentSteps = 3

var (
	errorMissingStatus  = common.DetailedError{Kind: common.ProtocolError, Code: "missing_status", Message: "libreview answer has no status"}
	errorMissingToken   = common.DetailedError{Kind: common.ProtocolError, Code: "missing_token", Message: "libreview answer has no token"}
	errorUnknownStep    = common.DetailedError{Kind: common.ProtocolError, Code: "unknown_step", Message: "libreview requires an unknown acceptance step"}
	errorLoginFailed    = common.DetailedError{Kind: common.ProtocolError, Code: "login_failed", Message: "login refused"}
	errorConsentFailed  = common.DetailedError{Kind: common.ProtocolError, Code: "consent_failed", Message: "document acceptance refused"}
	errorConsentLoop    = common.DetailedError{Kind: common.ProtocolError, Code: "consent_loop_exceeded", Message: "too many documents to accept"}
	errorFinalLoginStep = common.DetailedError{Kind: common.ProtocolError, Code: "final_login_step_required", Message: "final login still requires an acceptance step"}
)

// AuthSession walks the login / consent protocol and keeps the resulting token
// in the libreview session it was given
type AuthSession struct {
	logger  *log.Logger
	client  libreview.ClientInterface
	session *libreview.Session
	state   State
	step    StepKind
}

func NewAuthSession(logger *log.Logger, client libreview.ClientInterface, session *libreview.Session) *AuthSession {
	return &AuthSession{
		logger:  logger,
		client:  client,
		session: session,
		state:   Unauthenticated,
	}
}

func (a *AuthSession) State() State {
	return a.state
}

// PendingStep is the document to accept while AwaitingConsent, empty otherwise
func (a *AuthSession) PendingStep() StepKind {
	return a.step
}

func (a *AuthSession) Session() *libreview.Session {
	return a.session
}

func (a *AuthSession) fail(err *common.DetailedError) LoginOutcome {
	a.state = Failed
	a.step = ""
	a.logger.Printf("authentication failed: %v", err)
	return failureOutcome(err)
}

func (a *AuthSession) failWith(template common.DetailedError, apiStatus *int) LoginOutcome {
	detailedErr := template
	if apiStatus != nil {
		detailedErr = detailedErr.WithAPIStatus(*apiStatus)
	}
	return a.fail(&detailedErr)
}

func authTicketToken(res *schema.AuthResponse) string {
	if res.Data != nil && res.Data.AuthTicket != nil {
		return res.Data.AuthTicket.Token
	}
	return ""
}

func stepType(res *schema.AuthResponse) string {
	if res.Data != nil && res.Data.Step != nil {
		return res.Data.Step.Type
	}
	return ""
}

// awaitStep moves to AwaitingConsent on a status 4 answer
func (a *AuthSession) awaitStep(res *schema.AuthResponse) LoginOutcome {
	step, ok := parseStepKind(stepType(res))
	if !ok {
		return a.failWith(errorUnknownStep, res.Status)
	}
	if token := authTicketToken(res); token != "" {
		a.session.SetToken(token)
	}
	if !a.session.HasToken() {
		return a.failWith(errorMissingToken, res.Status)
	}
	a.state = AwaitingConsent
	a.step = step
	a.logger.Printf("acceptance required: %s", step.DisplayName())
	return stepRequiredOutcome(step, a.session.Token())
}

// Login posts the credentials. It is used both for the initial and the final login.
func (a *AuthSession) Login(ctx context.Context, email string, password string) LoginOutcome {
	a.logger.Printf("logging in as %s", email)
	res, err := a.client.Login(ctx, a.session, email, password)
	if err != nil {
		return a.fail(err)
	}
	if res.Status == nil {
		return a.failWith(errorMissingStatus, nil)
	}
	switch *res.Status {
	case libreview.StatusOK:
		token := ""
		if res.Ticket != nil {
			token = res.Ticket.Token
		}
		if token == "" {
			return a.failWith(errorMissingToken, res.Status)
		}
		a.session.SetToken(token)
		a.state = Authenticated
		a.step = ""
		a.logger.Print("login successful")
		return successOutcome(token)
	case libreview.StatusStepRequired:
		return a.awaitStep(res)
	}
	return a.failWith(errorLoginFailed, res.Status)
}

// AcceptDocument accepts one document with the current token. Success means every
// required document has been accepted; a final Login is still needed.
func (a *AuthSession) AcceptDocument(ctx context.Context, step StepKind) LoginOutcome {
	a.logger.Printf("accepting %s", step.DisplayName())
	res, err := a.client.ContinueStep(ctx, a.session, string(step))
	if err != nil {
		return a.fail(err)
	}
	if res.Status == nil {
		return a.failWith(errorMissingStatus, nil)
	}
	switch *res.Status {
	case libreview.StatusOK:
		if token := authTicketToken(res); token != "" {
			a.session.SetToken(token)
		}
		a.step = ""
		a.logger.Printf("%s accepted", step.DisplayName())
		return successOutcome(a.session.Token())
	case libreview.StatusStepRequired:
		return a.awaitStep(res)
	}
	return a.failWith(errorConsentFailed, res.Status)
}

// RunAuthFlow logs in, accepts up to MaxConsentSteps documents when asked to, then
// logs in again to get the token used for data calls. The first failure aborts.
func (a *AuthSession) RunAuthFlow(ctx context.Context, email string, password string) (string, *common.DetailedError) {
	outcome := a.Login(ctx, email, password)
	switch outcome.Kind {
	case Success:
		return outcome.Token, nil
	case Failure:
		return "", outcome.Err
	}

	step := outcome.Step
	accepted := false
	for i := 0; i < MaxConsentSteps && !accepted; i++ {
		a.logger.Printf("acceptance step %d/%d: %s", i+1, MaxConsentSteps, step)
		outcome = a.AcceptDocument(ctx, step)
		switch outcome.Kind {
		case Failure:
			return "", outcome.Err
		case Success:
			accepted = true
		case StepRequired:
			step = outcome.Step
		}
	}
	if !accepted {
		return "", a.failWith(errorConsentLoop, nil).Err
	}

	a.logger.Print("all documents accepted, final login")
	outcome = a.Login(ctx, email, password)
	switch outcome.Kind {
	case Success:
		return outcome.Token, nil
	case StepRequired:
		return "", a.failWith(errorFinalLoginStep, nil).Err
	}
	return "", outcome.Err
}
