package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("Your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	// auction lifecycle errors
	ErrInvalidConfig   = errors.New("invalid auction configuration")
	ErrWrongCurrency   = errors.New("payment asset does not match auction currency")
	ErrInsufficientBid = errors.New("bid below required minimum")
	ErrAuctionEnded    = errors.New("auction has ended")
	ErrAuctionNotEnded = errors.New("auction is not yet over")
	ErrAuctionHasBid   = errors.New("the auction has a valid bid made")
	ErrNoBid           = errors.New("auction has no bid to settle")
	ErrNotSeller       = errors.New("caller is not the auction seller")
	ErrNotBidder       = errors.New("caller is not the highest bidder")

	// ledger errors
	ErrCustodyTransferFailed = errors.New("asset custody transfer failed")
	ErrPaymentTransferFailed = errors.New("payment transfer failed")

	// request error
	ErrInvalidAddress   = errors.New("Invalid address")
	ErrInvalidSignature = errors.New("Invalid signature")
	ErrInvalidAmount    = errors.New("invalid amount")
)
