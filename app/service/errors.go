package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrWebhookRejected      = errors.New("webhook rejected")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrCoinPackNotFound     = errors.New("coin pack not found")
	ErrCreditConflict       = errors.New("credit reference held by a different amount")
)
