// Package domain holds the persisted models and value types shared by the
// ingestion and retrieval pipelines.
package domain

// ScopeCorpus is the scope assigned to chunks produced by document ingestion.
const ScopeCorpus = "corpus"

// AllModels lists every gorm model owned by this service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&DocumentRecord{},
		&QuotaLedgerEntry{},
		&ChunkRecord{},
		&MetadataField{},
	}
}
