package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthChecker struct {
	db *pgxpool.Pool
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

// LedgerAudit reports whether every udhaar record's running balance still
// equals the sum of its bill entries, and whether any udhaar bill is missing
// its ledger entry altogether. Orphaned bills heal through the reconciler;
// a non-zero divergence count means manual intervention is needed, the
// engine itself never patches it.
type LedgerAudit struct {
	Status          string `json:"status"`
	RecordsChecked  int    `json:"records_checked"`
	DivergedRecords int    `json:"diverged_records"`
	OrphanedBills   int    `json:"orphaned_bills"`
}

func NewHealthChecker(db *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{db: db}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

func (h *HealthChecker) checkDatabase() DatabaseHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return DatabaseHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

// CheckLedger audits the udhaar invariant across all owners:
// total_remaining == SUM(udhaar_bills.remaining_amount) per record.
func (h *HealthChecker) CheckLedger(ctx context.Context) (LedgerAudit, error) {
	query := `
		SELECT COUNT(*) AS checked,
		       COUNT(*) FILTER (WHERE diverged) AS diverged
		FROM (
			SELECT r.id,
			       r.total_remaining <> COALESCE(SUM(b.remaining_amount), 0) AS diverged
			FROM udhaar_records r
			LEFT JOIN udhaar_bills b ON b.udhaar_record_id = r.id
			GROUP BY r.id, r.total_remaining
		) audit
	`

	var audit LedgerAudit
	if err := h.db.QueryRow(ctx, query).Scan(&audit.RecordsChecked, &audit.DivergedRecords); err != nil {
		return LedgerAudit{}, err
	}

	// A bill with no ledger entry at all would slip past the per-record
	// audit above, so count those separately.
	orphanQuery := `
		SELECT COUNT(*)
		FROM bills b
		WHERE b.payment_mode = 'Udhaar'
		  AND b.remaining_amount > 0
		  AND NOT EXISTS (SELECT 1 FROM udhaar_bills u WHERE u.bill_id = b.id)
	`
	if err := h.db.QueryRow(ctx, orphanQuery).Scan(&audit.OrphanedBills); err != nil {
		return LedgerAudit{}, err
	}

	audit.Status = "healthy"
	if audit.DivergedRecords > 0 || audit.OrphanedBills > 0 {
		audit.Status = "diverged"
	}
	return audit, nil
}
