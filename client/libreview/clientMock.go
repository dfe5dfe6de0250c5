package libreview

import (
	"context"

	"github.com/mdblp/libreview-exporter/common"
	"github.com/mdblp/libreview-exporter/schema"
	"github.com/stretchr/testify/mock"
)

// ClientMock use for unit tests
type ClientMock struct {
	mock.Mock
}

func NewMock() *ClientMock {
	return &ClientMock{}
}

func mockedError(args mock.Arguments, index int) *common.DetailedError {
	detailedErr, _ := args.Get(index).(*common.DetailedError)
	return detailedErr
}

func (c *ClientMock) Login(ctx context.Context, session *Session, email string, password string) (*schema.AuthResponse, *common.DetailedError) {
	args := c.Called(ctx, session, email, password)
	res, _ := args.Get(0).(*schema.AuthResponse)
	return res, mockedError(args, 1)
}

func (c *ClientMock) ContinueStep(ctx context.Context, session *Session, step string) (*schema.AuthResponse, *common.DetailedError) {
	args := c.Called(ctx, session, step)
	res, _ := args.Get(0).(*schema.AuthResponse)
	return res, mockedError(args, 1)
}

func (c *ClientMock) GetConnections(ctx context.Context, session *Session) (*schema.ConnectionsResponse, *common.DetailedError) {
	args := c.Called(ctx, session)
	res, _ := args.Get(0).(*schema.ConnectionsResponse)
	return res, mockedError(args, 1)
}

func (c *ClientMock) GetGraph(ctx context.Context, session *Session, patientID string) (*schema.GraphResponse, *common.DetailedError) {
	args := c.Called(ctx, session, patientID)
	res, _ := args.Get(0).(*schema.GraphResponse)
	return res, mockedError(args, 1)
}
