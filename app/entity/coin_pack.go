package entity

import "github.com/shopspring/decimal"

type CoinPack struct {
	PackNumber   int32
	Price        int64
	Currency     string
	BonusPercent decimal.Decimal
	BaseCoins    int64
	TotalCoins   int64
	IsActive     bool
}
