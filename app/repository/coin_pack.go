package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
)

type CoinPackRepository struct {
	db DBTX
}

func NewCoinPackRepository(db DBTX) *CoinPackRepository {
	return &CoinPackRepository{db: db}
}

const coinPackColumns = `pack_number, price, currency, bonus_percent, base_coins, total_coins, is_active`

// ListActive returns active packs ordered by price.
func (r *CoinPackRepository) ListActive(ctx context.Context) ([]*entity.CoinPack, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+coinPackColumns+`
		FROM coin_packs
		WHERE is_active = ?
		ORDER BY price ASC, pack_number ASC
	`, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packs := make([]*entity.CoinPack, 0)
	for rows.Next() {
		pack := &entity.CoinPack{}
		if err := scanCoinPack(rows, pack); err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return packs, nil
}

func (r *CoinPackRepository) FindByNumber(ctx context.Context, packNumber int32) (*entity.CoinPack, error) {
	pack := &entity.CoinPack{}
	row := r.db.QueryRowContext(ctx, `SELECT `+coinPackColumns+` FROM coin_packs WHERE pack_number = ?`, packNumber)
	if err := scanCoinPack(row, pack); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return pack, nil
}

func scanCoinPack(row rowScanner, pack *entity.CoinPack) error {
	return row.Scan(
		&pack.PackNumber,
		&pack.Price,
		&pack.Currency,
		&pack.BonusPercent,
		&pack.BaseCoins,
		&pack.TotalCoins,
		&pack.IsActive,
	)
}
