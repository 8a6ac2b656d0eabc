package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
	mAccount "github.com/auctionx/goapi/domain/account/mocks"
	"github.com/auctionx/goapi/stores/auth/usecase"
)

func TestSignAndParseToken(t *testing.T) {
	mockAccountUC := &mAccount.Usecase{}

	mockAccountUC.On("Get", mock.Anything, domain.Address("my-address")).Return(nil, nil)
	mockAccountUC.On("ValidateSignature", mock.Anything, domain.Address("my-address"), "0xsignature").Return(nil)

	ctx := ctx.Background()
	u := usecase.New("jwt-secret", mockAccountUC)
	tkn, err := u.SignToken(ctx, "my-address", "0xsignature")
	assert.NoError(t, err)
	assert.NotEmpty(t, tkn)
	ads, err := u.ParseToken(ctx, tkn)
	assert.NoError(t, err)
	assert.Equal(t, "my-address", ads)
}

func TestSignTokenRejectsBadSignature(t *testing.T) {
	mockAccountUC := &mAccount.Usecase{}

	mockAccountUC.On("Get", mock.Anything, domain.Address("my-address")).Return(nil, nil)
	mockAccountUC.On("ValidateSignature", mock.Anything, domain.Address("my-address"), "0xbogus").Return(domain.ErrInvalidSignature)

	ctx := ctx.Background()
	u := usecase.New("jwt-secret", mockAccountUC)
	tkn, err := u.SignToken(ctx, "my-address", "0xbogus")
	assert.Error(t, err)
	assert.Empty(t, tkn)
}

func TestParseTokenRejectsForeignToken(t *testing.T) {
	mockAccountUC := &mAccount.Usecase{}
	mockAccountUC.On("Get", mock.Anything, domain.Address("my-address")).Return(nil, nil)
	mockAccountUC.On("ValidateSignature", mock.Anything, domain.Address("my-address"), "0xsignature").Return(nil)

	ctx := ctx.Background()
	issuer := usecase.New("jwt-secret", mockAccountUC)
	verifier := usecase.New("other-secret", mockAccountUC)

	tkn, err := issuer.SignToken(ctx, "my-address", "0xsignature")
	assert.NoError(t, err)

	_, err = verifier.ParseToken(ctx, tkn)
	assert.Error(t, err)
}
