package auth_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/authstarter/pkg/identity"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetUser(ctx context.Context) (*identity.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.(*identity.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) SendOTP(ctx context.Context, req identity.OTPRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockClient) VerifyOTP(ctx context.Context, req identity.VerifyRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockClient) SignInWithPassword(ctx context.Context, creds identity.Credentials) error {
	return m.Called(ctx, creds).Error(0)
}

func (m *mockClient) SignUp(ctx context.Context, req identity.SignUpRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return m.Called(ctx, email, redirectTo).Error(0)
}

func (m *mockClient) UpdatePassword(ctx context.Context, password string) error {
	return m.Called(ctx, password).Error(0)
}

func (m *mockClient) SignInWithOAuth(provider, redirectTo string) (string, error) {
	args := m.Called(provider, redirectTo)
	return args.String(0), args.Error(1)
}

func (m *mockClient) ExchangeCodeForSession(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockClient) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
