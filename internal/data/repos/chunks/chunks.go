package chunks

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/rag-orchestrator/internal/data/db"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/rag/lexical"
	"github.com/yungbote/rag-orchestrator/internal/rag/vecmath"
)

var ErrNotFound = errors.New("chunk not found")

// payloadColumns never includes the embedding.
var payloadColumns = []string{"id", "tenant", "doc_id", "scope", "chunk_id", "source", "text", "created_at", "updated_at"}

type ChunkRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, rec *domain.ChunkRecord) error
	KeywordSearch(ctx context.Context, tx *gorm.DB, tenant, query string, topK int, docID string) ([]domain.RetrievalHit, error)
	VectorSearch(ctx context.Context, tx *gorm.DB, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error)
	Count(ctx context.Context, tx *gorm.DB, tenant, scope, docID string) (int64, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*domain.ChunkRecord, error)
	Ping(ctx context.Context) error
	EnsureSearchIndex(ctx context.Context) error
	SearchIndexExists(ctx context.Context) (bool, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	repoLog := baseLog.With("repo", "ChunkRepo")
	return &chunkRepo{db: db, log: repoLog}
}

func (r *chunkRepo) isPostgres() bool {
	return r.db.Dialector.Name() == db.DriverPostgres
}

// Upsert writes rec under its deterministic id, replacing any previous version.
func (r *chunkRepo) Upsert(ctx context.Context, tx *gorm.DB, rec *domain.ChunkRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil || rec.ID == "" {
		return errors.New("chunk record requires id")
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tenant", "doc_id", "scope", "chunk_id", "source", "text", "embedding", "created_at", "updated_at"}),
		}).
		Create(rec).Error
}

type rankedChunk struct {
	domain.ChunkRecord `gorm:"embedded"`
	Rank               float64 `gorm:"column:rank"`
}

// KeywordSearch ranks with postgres full-text search when available and falls back
// to in-process BM25 over the tenant's chunks otherwise.
func (r *chunkRepo) KeywordSearch(ctx context.Context, tx *gorm.DB, tenant, query string, topK int, docID string) ([]domain.RetrievalHit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return []domain.RetrievalHit{}, nil
	}

	if r.isPostgres() {
		var rows []rankedChunk
		q := transaction.WithContext(ctx).
			Model(&domain.ChunkRecord{}).
			Select(strings.Join(payloadColumns, ", ")+", ts_rank_cd(to_tsvector('english', text), plainto_tsquery('english', ?)) AS rank", query).
			Where("tenant = ?", tenant).
			Where("to_tsvector('english', text) @@ plainto_tsquery('english', ?)", query)
		if docID != "" {
			q = q.Where("doc_id = ?", docID)
		}
		if err := q.Order("rank DESC, id ASC").Limit(topK).Scan(&rows).Error; err != nil {
			return nil, err
		}
		hits := make([]domain.RetrievalHit, 0, len(rows))
		for i := range rows {
			hits = append(hits, domain.RetrievalHit{ID: rows[i].ID, Score: rows[i].Rank, Payload: rows[i].Payload()})
		}
		return hits, nil
	}

	candidates, err := r.tenantChunks(ctx, transaction, tenant, docID, false)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	scorer := lexical.NewScorer(texts)
	qtoks := lexical.Tokenize(query)
	hits := make([]domain.RetrievalHit, 0, len(candidates))
	for i, c := range candidates {
		score := scorer.Score(i, qtoks)
		if score <= 0 {
			continue
		}
		hits = append(hits, domain.RetrievalHit{ID: c.ID, Score: score, Payload: c.Payload()})
	}
	return domain.TopHits(hits, topK), nil
}

// VectorSearch scans the tenant's stored embeddings; scores are cosine + 1.
func (r *chunkRepo) VectorSearch(ctx context.Context, tx *gorm.DB, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if topK <= 0 || len(qvec) == 0 {
		return []domain.RetrievalHit{}, nil
	}
	candidates, err := r.tenantChunks(ctx, transaction, tenant, docID, true)
	if err != nil {
		return nil, err
	}
	hits := make([]domain.RetrievalHit, 0, len(candidates))
	for _, c := range candidates {
		vec, err := c.Vector()
		if err != nil {
			return nil, err
		}
		if len(vec) != len(qvec) {
			continue
		}
		hits = append(hits, domain.RetrievalHit{ID: c.ID, Score: vecmath.ShiftedCosine(qvec, vec), Payload: c.Payload()})
	}
	return domain.TopHits(hits, topK), nil
}

func (r *chunkRepo) tenantChunks(ctx context.Context, transaction *gorm.DB, tenant, docID string, withEmbedding bool) ([]*domain.ChunkRecord, error) {
	cols := payloadColumns
	if withEmbedding {
		cols = append(append([]string{}, payloadColumns...), "embedding")
	}
	q := transaction.WithContext(ctx).Select(cols).Where("tenant = ?", tenant)
	if docID != "" {
		q = q.Where("doc_id = ?", docID)
	}
	var out []*domain.ChunkRecord
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) Count(ctx context.Context, tx *gorm.DB, tenant, scope, docID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&domain.ChunkRecord{}).Where("tenant = ?", tenant)
	if scope != "" {
		q = q.Where("scope = ?", scope)
	}
	if docID != "" {
		q = q.Where("doc_id = ?", docID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *chunkRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*domain.ChunkRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rec domain.ChunkRecord
	err := transaction.WithContext(ctx).Select(payloadColumns).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *chunkRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// EnsureSearchIndex creates the chunk table and, on postgres, its full-text index.
func (r *chunkRepo) EnsureSearchIndex(ctx context.Context) error {
	gdb := r.db.WithContext(ctx)
	if err := gdb.AutoMigrate(&domain.ChunkRecord{}); err != nil {
		return err
	}
	return db.EnsureChunkSearchIndex(gdb)
}

func (r *chunkRepo) SearchIndexExists(ctx context.Context) (bool, error) {
	m := r.db.WithContext(ctx).Migrator()
	if !m.HasTable(&domain.ChunkRecord{}) {
		return false, nil
	}
	if !r.isPostgres() {
		return true, nil
	}
	return m.HasIndex(&domain.ChunkRecord{}, db.ChunkSearchIndex), nil
}
