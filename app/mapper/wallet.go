package mapper

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/repository"
	"github.com/vibast-solutions/ms-go-coinwallet/app/service"
	"github.com/vibast-solutions/ms-go-coinwallet/app/types"
)

func WalletToResponse(item *entity.Wallet) *types.Wallet {
	if item == nil {
		return nil
	}
	return &types.Wallet{
		Id:        item.ID,
		UserId:    item.UserID,
		Balance:   item.Balance,
		CreatedAt: formatTime(item.CreatedAt),
		UpdatedAt: formatTime(item.UpdatedAt),
	}
}

func TransactionToResponse(item *entity.Transaction) *types.Transaction {
	if item == nil {
		return nil
	}
	return &types.Transaction{
		Id:          item.ID,
		UserId:      item.UserID,
		WalletId:    item.WalletID,
		Amount:      item.Amount,
		Type:        string(item.Type),
		Status:      string(item.Status),
		ReferenceId: derefString(item.ReferenceID),
		CreatedAt:   formatTime(item.CreatedAt),
	}
}

func TransactionsToResponse(items []*entity.Transaction) []*types.Transaction {
	result := make([]*types.Transaction, 0, len(items))
	for _, item := range items {
		result = append(result, TransactionToResponse(item))
	}
	return result
}

func LedgerResultToResponse(res *service.LedgerResult) *types.LedgerResponse {
	if res == nil {
		return nil
	}
	return &types.LedgerResponse{Transaction: TransactionToResponse(res.Transaction), Balance: res.Balance}
}

func TransferResultToResponse(res *repository.TransferResult) *types.TransferResponse {
	if res == nil {
		return nil
	}
	return &types.TransferResponse{
		ReferenceId: res.ReferenceID,
		From:        TransactionToResponse(res.From),
		To:          TransactionToResponse(res.To),
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
	}
}

// CoinPackToResponse renders the price in major units next to the raw
// minor-unit amount.
func CoinPackToResponse(item *entity.CoinPack) *types.CoinPack {
	if item == nil {
		return nil
	}
	return &types.CoinPack{
		PackNumber:   item.PackNumber,
		Price:        item.Price,
		PriceDisplay: decimal.New(item.Price, -2).StringFixed(2) + " " + strings.ToUpper(item.Currency),
		Currency:     item.Currency,
		BonusPercent: item.BonusPercent.String(),
		BaseCoins:    item.BaseCoins,
		TotalCoins:   item.TotalCoins,
	}
}

func CoinPacksToResponse(items []*entity.CoinPack) *types.ListCoinPacksResponse {
	packs := make([]*types.CoinPack, 0, len(items))
	for _, item := range items {
		packs = append(packs, CoinPackToResponse(item))
	}
	return &types.ListCoinPacksResponse{Packs: packs}
}
