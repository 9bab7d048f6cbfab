package domain

import "time"

const (
	QuotaReasonFiles = "FILE_QUOTA_EXCEEDED"
	QuotaReasonBytes = "BYTE_QUOTA_EXCEEDED"
)

// QuotaLedgerEntry holds a tenant's usage for one UTC day.
type QuotaLedgerEntry struct {
	Tenant    string    `gorm:"column:tenant;primaryKey;size:255" json:"tenant"`
	Date      string    `gorm:"column:date;size:10;not null" json:"date"`
	FilesUsed int64     `gorm:"column:files_used;not null;default:0" json:"files_used"`
	BytesUsed int64     `gorm:"column:bytes_used;not null;default:0" json:"bytes_used"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (QuotaLedgerEntry) TableName() string { return "rag_quota_ledger" }

// QuotaDecision is the outcome of an atomic check-and-consume.
// Denied decisions carry Reason/Limit/Current/Attempted; allowed ones carry the new totals.
type QuotaDecision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Limit     int64  `json:"limit,omitempty"`
	Current   int64  `json:"current,omitempty"`
	Attempted int64  `json:"attempted,omitempty"`
	Date      string `json:"date,omitempty"`
	FilesUsed int64  `json:"files_used"`
	BytesUsed int64  `json:"bytes_used"`
}

// QuotaDate formats t as the UTC calendar day used as the ledger key.
func QuotaDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// EvaluateQuota applies the ledger rules to an entry already reset for today.
// The file limit is checked before the byte limit.
func EvaluateQuota(entry QuotaLedgerEntry, addFiles, addBytes, maxFiles, maxBytes int64) QuotaDecision {
	newFiles := entry.FilesUsed + addFiles
	newBytes := entry.BytesUsed + addBytes
	if newFiles > maxFiles {
		return QuotaDecision{
			Allowed:   false,
			Reason:    QuotaReasonFiles,
			Limit:     maxFiles,
			Current:   entry.FilesUsed,
			Attempted: addFiles,
			Date:      entry.Date,
			FilesUsed: entry.FilesUsed,
			BytesUsed: entry.BytesUsed,
		}
	}
	if newBytes > maxBytes {
		return QuotaDecision{
			Allowed:   false,
			Reason:    QuotaReasonBytes,
			Limit:     maxBytes,
			Current:   entry.BytesUsed,
			Attempted: addBytes,
			Date:      entry.Date,
			FilesUsed: entry.FilesUsed,
			BytesUsed: entry.BytesUsed,
		}
	}
	return QuotaDecision{
		Allowed:   true,
		Date:      entry.Date,
		FilesUsed: newFiles,
		BytesUsed: newBytes,
	}
}
