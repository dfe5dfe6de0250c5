package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"testing"

	"github.com/mdblp/libreview-exporter/client/libreview"
	"github.com/mdblp/libreview-exporter/common"
	"github.com/mdblp/libreview-exporter/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	email    = "me@example.com"
	password = "secret"
)

var testLogger = log.New(os.Stdout, "auth-test ", log.LstdFlags|log.Lshortfile)

func authResponse(t *testing.T, body string) *schema.AuthResponse {
	var res schema.AuthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	return &res
}

func newTestAuthSession(client *libreview.ClientMock) *AuthSession {
	return NewAuthSession(testLogger, client, libreview.NewSession("http://libreview.test", "", ""))
}

func TestAuthSession_Login(t *testing.T) {
	httpErr := &common.DetailedError{Kind: common.ProtocolError, Code: "http_status", Status: http.StatusUnauthorized}
	tests := []struct {
		name      string
		body      string
		clientErr *common.DetailedError
		wantKind  OutcomeKind
		wantToken string
		wantStep  StepKind
		wantCode  string
		wantState State
	}{
		{
			name:      "status 0 captures the ticket token",
			body:      `{"status":0,"ticket":{"token":"T1"}}`,
			wantKind:  Success,
			wantToken: "T1",
			wantState: Authenticated,
		},
		{
			name:      "status 0 only reads the ticket token",
			body:      `{"status":0,"data":{"authTicket":{"token":"T9"}}}`,
			wantKind:  Failure,
			wantCode:  "missing_token",
			wantState: Failed,
		},
		{
			name:      "status 4 requires the terms of use",
			body:      `{"status":4,"data":{"step":{"type":"tou","componentName":"AcceptDocument"},"authTicket":{"token":"P1"}}}`,
			wantKind:  StepRequired,
			wantToken: "P1",
			wantStep:  StepTermsOfUse,
			wantState: AwaitingConsent,
		},
		{
			name:      "status 4 without step is a failure",
			body:      `{"status":4}`,
			wantKind:  Failure,
			wantCode:  "unknown_step",
			wantState: Failed,
		},
		{
			name:      "status 4 without token is a failure",
			body:      `{"status":4,"data":{"step":{"type":"pp"}}}`,
			wantKind:  Failure,
			wantCode:  "missing_token",
			wantState: Failed,
		},
		{
			name:      "status 0 without token is a failure",
			body:      `{"status":0,"ticket":{}}`,
			wantKind:  Failure,
			wantCode:  "missing_token",
			wantState: Failed,
		},
		{
			name:      "other status",
			body:      `{"status":2,"error":{"message":"notAuthenticated"}}`,
			wantKind:  Failure,
			wantCode:  "login_failed",
			wantState: Failed,
		},
		{
			name:      "no status",
			body:      `{}`,
			wantKind:  Failure,
			wantCode:  "missing_status",
			wantState: Failed,
		},
		{
			name:      "http error",
			clientErr: httpErr,
			wantKind:  Failure,
			wantCode:  "http_status",
			wantState: Failed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := libreview.NewMock()
			if tt.clientErr != nil {
				client.On("Login", mock.Anything, mock.Anything, email, password).Return(nil, tt.clientErr)
			} else {
				client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, tt.body), nil)
			}
			a := newTestAuthSession(client)

			outcome := a.Login(context.Background(), email, password)

			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Equal(t, tt.wantToken, outcome.Token)
			assert.Equal(t, tt.wantStep, outcome.Step)
			assert.Equal(t, tt.wantState, a.State())
			if tt.wantCode != "" {
				require.NotNil(t, outcome.Err)
				assert.Equal(t, tt.wantCode, outcome.Err.Code)
			} else {
				assert.Nil(t, outcome.Err)
				assert.Equal(t, tt.wantToken, a.Session().Token())
			}
			client.AssertExpectations(t)
		})
	}
}

func TestAuthSession_Login_KeepsAPIStatus(t *testing.T) {
	client := libreview.NewMock()
	client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, `{"status":2}`), nil)
	a := newTestAuthSession(client)

	outcome := a.Login(context.Background(), email, password)

	require.NotNil(t, outcome.Err)
	require.NotNil(t, outcome.Err.APIStatus)
	assert.Equal(t, 2, *outcome.Err.APIStatus)
}

func TestAuthSession_AcceptDocument(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantKind  OutcomeKind
		wantToken string
		wantStep  StepKind
		wantCode  string
	}{
		{
			name:      "accepted with a new token",
			body:      `{"status":0,"data":{"authTicket":{"token":"C2"}}}`,
			wantKind:  Success,
			wantToken: "C2",
		},
		{
			name:      "accepted without token keeps the current one",
			body:      `{"status":0}`,
			wantKind:  Success,
			wantToken: "C1",
		},
		{
			name:      "next document required",
			body:      `{"status":4,"data":{"step":{"type":"pp"},"authTicket":{"token":"C3"}}}`,
			wantKind:  StepRequired,
			wantToken: "C3",
			wantStep:  StepPrivacyPolicy,
		},
		{
			name:      "next document required without new token",
			body:      `{"status":4,"data":{"step":{"type":"pp"}}}`,
			wantKind:  StepRequired,
			wantToken: "C1",
			wantStep:  StepPrivacyPolicy,
		},
		{
			name:     "refused",
			body:     `{"status":5}`,
			wantKind: Failure,
			wantCode: "consent_failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := libreview.NewMock()
			client.On("ContinueStep", mock.Anything, mock.Anything, "tou").Return(authResponse(t, tt.body), nil)
			a := newTestAuthSession(client)
			a.Session().SetToken("C1")

			outcome := a.AcceptDocument(context.Background(), StepTermsOfUse)

			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Equal(t, tt.wantToken, outcome.Token)
			assert.Equal(t, tt.wantStep, outcome.Step)
			if tt.wantCode != "" {
				require.NotNil(t, outcome.Err)
				assert.Equal(t, tt.wantCode, outcome.Err.Code)
				assert.Equal(t, Failed, a.State())
			}
			client.AssertExpectations(t)
		})
	}
}

func TestAuthSession_RunAuthFlow_DirectSuccess(t *testing.T) {
	client := libreview.NewMock()
	client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, `{"status":0,"ticket":{"token":"T1"}}`), nil).Once()
	a := newTestAuthSession(client)

	token, err := a.RunAuthFlow(context.Background(), email, password)

	assert.Nil(t, err)
	assert.Equal(t, "T1", token)
	assert.Equal(t, Authenticated, a.State())
	client.AssertNumberOfCalls(t, "Login", 1)
	client.AssertNotCalled(t, "ContinueStep", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthSession_RunAuthFlow_ConsentThenFinalLogin(t *testing.T) {
	client := libreview.NewMock()
	client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, `{"status":4,"data":{"step":{"type":"tou"},"authTicket":{"token":"P1"}}}`), nil).Once()
	client.On("ContinueStep", mock.Anything, mock.Anything, "tou").Return(authResponse(t, `{"status":4,"data":{"step":{"type":"pp"},"authTicket":{"token":"P2"}}}`), nil).Once()
	client.On("ContinueStep", mock.Anything, mock.Anything, "pp").Return(authResponse(t, `{"status":0,"data":{"authTicket":{"token":"P3"}}}`), nil).Once()
	client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, `{"status":0,"ticket":{"token":"FINAL"}}`), nil).Once()
	a := newTestAuthSession(client)

	token, err := a.RunAuthFlow(context.Background(), email, password)

	assert.Nil(t, err)
	assert.Equal(t, "FINAL", token)
	assert.Equal(t, "FINAL", a.Session().Token())
	assert.Equal(t, Authenticated, a.State())
	client.AssertNumberOfCalls(t, "Login", 2)
	client.AssertNumberOfCalls(t, "ContinueStep", 2)
	client.AssertExpectations(t)
}

func TestAuthSession_RunAuthFlow_ConsentLoopExceeded(t *testing.T) {
	client := libreview.NewMock()
	client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, `{"status":4,"data":{"step":{"type":"tou"},"authTicket":{"token":"P1"}}}`), nil).Once()
	client.On("ContinueStep", mock.Anything, mock.Anything, "tou").Return(authResponse(t, `{"status":4,"data":{"step":{"type":"pp"},"authTicket":{"token":"P2"}}}`), nil)
	client.On("ContinueStep", mock.Anything, mock.Anything, "pp").Return(authResponse(t, `{"status":4,"data":{"step":{"type":"tou"},"authTicket":{"token":"P3"}}}`), nil)
	a := newTestAuthSession(client)

	token, err := a.RunAuthFlow(context.Background(), email, password)

	assert.Equal(t, "", token)
	require.NotNil(t, err)
	assert.Equal(t, common.ProtocolError, err.Kind)
	assert.Equal(t, "consent_loop_exceeded", err.Code)
	assert.Equal(t, Failed, a.State())
	client.AssertNumberOfCalls(t, "ContinueStep", MaxConsentSteps)
	client.AssertNumberOfCalls(t, "Login", 1)
}

func TestAuthSession_RunAuthFlow_ConsentFailureAborts(t *testing.T) {
	transportErr := &common.DetailedError{Kind: common.TransportError, Code: "transport_error"}
	client := libreview.NewMock()
	client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, `{"status":4,"data":{"step":{"type":"pp"},"authTicket":{"token":"P1"}}}`), nil).Once()
	client.On("ContinueStep", mock.Anything, mock.Anything, "pp").Return(nil, transportErr).Once()
	a := newTestAuthSession(client)

	token, err := a.RunAuthFlow(context.Background(), email, password)

	assert.Equal(t, "", token)
	assert.Equal(t, transportErr, err)
	client.AssertNumberOfCalls(t, "Login", 1)
}

func TestAuthSession_RunAuthFlow_FinalLoginFailures(t *testing.T) {
	tests := []struct {
		name      string
		finalBody string
		wantCode  string
	}{
		{name: "final login refused", finalBody: `{"status":2}`, wantCode: "login_failed"},
		{name: "final login asks again", finalBody: `{"status":4,"data":{"step":{"type":"tou"},"authTicket":{"token":"P9"}}}`, wantCode: "final_login_step_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := libreview.NewMock()
			client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, `{"status":4,"data":{"step":{"type":"tou"},"authTicket":{"token":"P1"}}}`), nil).Once()
			client.On("ContinueStep", mock.Anything, mock.Anything, "tou").Return(authResponse(t, `{"status":0}`), nil).Once()
			client.On("Login", mock.Anything, mock.Anything, email, password).Return(authResponse(t, tt.finalBody), nil).Once()
			a := newTestAuthSession(client)

			token, err := a.RunAuthFlow(context.Background(), email, password)

			assert.Equal(t, "", token)
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, Failed, a.State())
		})
	}
}

func TestStepKind_DisplayName(t *testing.T) {
	assert.Equal(t, "Terms of Use", StepTermsOfUse.DisplayName())
	assert.Equal(t, "Privacy Policy", StepPrivacyPolicy.DisplayName())
	assert.Equal(t, "xyz", StepKind("xyz").DisplayName())
}
