package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BinRepository resolves a 6-digit BIN prefix to its issuing bank. The
// catalog is operator-maintained reference data; this repository only reads.
type BinRepository struct {
	db *pgxpool.Pool
}

func NewBinRepository(db *pgxpool.Pool) *BinRepository {
	return &BinRepository{db: db}
}

func (r *BinRepository) LookupBank(ctx context.Context, binCode string) (*domain.Bank, error) {
	row := r.db.QueryRow(ctx, `
		SELECT b.id, b.name, b.alternate_gateway_eligible, b.is_active
		FROM bin_codes bc
		JOIN banks b ON b.id = bc.bank_id
		WHERE bc.bin_code = $1
	`, binCode)

	var bank domain.Bank
	err := row.Scan(&bank.ID, &bank.Name, &bank.AlternateGatewayEligible, &bank.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBinNotFound
		}
		return nil, fmt.Errorf("scan bank for bin %s: %w", binCode, err)
	}
	return &bank, nil
}
