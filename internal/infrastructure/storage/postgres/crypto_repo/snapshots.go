package crypto_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/tax"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
)

const snapshotsTable = "tax_report_snapshots"

// SnapshotStore implements tax.SnapshotStore. The full report is kept as an
// encoded payload; headline figures are duplicated into columns for listing.
type SnapshotStore struct {
	txm   *postgres.TxManager
	codec *postgres.SnapshotCodec
}

// NewSnapshotStore creates a snapshot store.
func NewSnapshotStore(txm *postgres.TxManager, codec *postgres.SnapshotCodec) *SnapshotStore {
	return &SnapshotStore{txm: txm, codec: codec}
}

var _ tax.SnapshotStore = (*SnapshotStore)(nil)

// Save upserts the snapshot of (company, year).
func (s *SnapshotStore) Save(ctx context.Context, r *tax.Report) error {
	payload, comp, err := s.codec.Encode(r)
	if err != nil {
		return err
	}

	sql, args, err := postgres.Builder().
		Insert(snapshotsTable).
		Columns("company_id", "year", "generated_at", "payload", "compression", "net_gain", "estimated_tax", "warnings").
		Values(r.CompanyID, r.Year, r.GeneratedAt, payload, string(comp), r.Summary.NetGain, r.Summary.EstimatedTax, len(r.Diagnostics)).
		Suffix(`ON CONFLICT (company_id, year) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			payload = EXCLUDED.payload,
			compression = EXCLUDED.compression,
			net_gain = EXCLUDED.net_gain,
			estimated_tax = EXCLUDED.estimated_tax,
			warnings = EXCLUDED.warnings`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert tax snapshot: %w", err)
	}
	return nil
}

// Load decodes the stored snapshot of (company, year).
func (s *SnapshotStore) Load(ctx context.Context, companyID id.ID, year int) (*tax.Report, error) {
	var (
		payload []byte
		comp    string
	)
	err := s.txm.GetQuerier(ctx).QueryRow(ctx,
		"SELECT payload, compression FROM "+snapshotsTable+" WHERE company_id = $1 AND year = $2",
		companyID, year,
	).Scan(&payload, &comp)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("Tax snapshot", fmt.Sprintf("%s/%d", companyID, year))
		}
		return nil, fmt.Errorf("load tax snapshot: %w", err)
	}

	var r tax.Report
	if err := s.codec.Decode(payload, postgres.Compression(comp), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
