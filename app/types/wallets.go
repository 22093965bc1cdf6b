package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	defaultTransactionsLimit = int32(50)
	maxTransactionsLimit     = int32(500)
)

type OpenWalletRequest struct {
	UserId string `json:"userId" validate:"required,max=255"`
}

func NewOpenWalletRequestFromContext(ctx echo.Context) (*OpenWalletRequest, error) {
	var body OpenWalletRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserId = strings.TrimSpace(body.UserId)
	return &body, nil
}

func (r *OpenWalletRequest) Validate() error {
	return validateStruct(r)
}

func (r *OpenWalletRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

type GetWalletRequest struct {
	UserId string `validate:"required,max=255"`
}

func NewGetWalletRequestFromContext(ctx echo.Context) (*GetWalletRequest, error) {
	return &GetWalletRequest{UserId: strings.TrimSpace(ctx.Param("userId"))}, nil
}

func (r *GetWalletRequest) Validate() error {
	if r.GetUserId() == "" {
		return errors.New("invalid user id")
	}
	return validateStruct(r)
}

func (r *GetWalletRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

// LedgerRequest is the body of a manual credit or debit.
type LedgerRequest struct {
	UserId      string `json:"-" validate:"required,max=255"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Type        string `json:"type" validate:"required,oneof=DEPOSIT WITHDRAWAL GIFT"`
	ReferenceId string `json:"referenceId" validate:"max=255"`
}

func NewLedgerRequestFromContext(ctx echo.Context) (*LedgerRequest, error) {
	var body LedgerRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserId = strings.TrimSpace(ctx.Param("userId"))
	body.Type = strings.ToUpper(strings.TrimSpace(body.Type))
	body.ReferenceId = strings.TrimSpace(body.ReferenceId)
	return &body, nil
}

func (r *LedgerRequest) Validate() error {
	return validateStruct(r)
}

func (r *LedgerRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

func (r *LedgerRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

func (r *LedgerRequest) GetType() string {
	if r == nil {
		return ""
	}
	return r.Type
}

func (r *LedgerRequest) GetReferenceId() string {
	if r == nil {
		return ""
	}
	return r.ReferenceId
}

type TransferRequest struct {
	FromUserId string `json:"fromUserId" validate:"required,max=255"`
	ToUserId   string `json:"toUserId" validate:"required,max=255,nefield=FromUserId"`
	Amount     int64  `json:"amount" validate:"gt=0"`
}

func NewTransferRequestFromContext(ctx echo.Context) (*TransferRequest, error) {
	var body TransferRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.FromUserId = strings.TrimSpace(body.FromUserId)
	body.ToUserId = strings.TrimSpace(body.ToUserId)
	return &body, nil
}

func (r *TransferRequest) Validate() error {
	return validateStruct(r)
}

func (r *TransferRequest) GetFromUserId() string {
	if r == nil {
		return ""
	}
	return r.FromUserId
}

func (r *TransferRequest) GetToUserId() string {
	if r == nil {
		return ""
	}
	return r.ToUserId
}

func (r *TransferRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

type ListTransactionsRequest struct {
	UserId string
	Limit  int32
	Offset int32
}

func NewListTransactionsRequestFromContext(ctx echo.Context) (*ListTransactionsRequest, error) {
	req := &ListTransactionsRequest{
		UserId: strings.TrimSpace(ctx.Param("userId")),
		Limit:  defaultTransactionsLimit,
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListTransactionsRequest) Validate() error {
	if r.GetUserId() == "" {
		return errors.New("invalid user id")
	}
	if r.GetLimit() <= 0 || r.GetLimit() > maxTransactionsLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

func (r *ListTransactionsRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

func (r *ListTransactionsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListTransactionsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type Wallet struct {
	Id        string `json:"id"`
	UserId    string `json:"userId"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type WalletResponse struct {
	Wallet *Wallet `json:"wallet"`
}

type Transaction struct {
	Id          string `json:"id"`
	UserId      string `json:"userId"`
	WalletId    string `json:"walletId"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	ReferenceId string `json:"referenceId,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type LedgerResponse struct {
	Transaction *Transaction `json:"transaction"`
	Balance     int64        `json:"balance"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type TransferResponse struct {
	ReferenceId string       `json:"referenceId"`
	From        *Transaction `json:"from"`
	To          *Transaction `json:"to"`
	FromBalance int64        `json:"fromBalance"`
	ToBalance   int64        `json:"toBalance"`
}
