package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// fingerprintClaim marks a (theme, fingerprint) pair as taken. Claims are
// inserted with Insert, never Upsert, so a duplicate insert fails with
// ErrKeyExists and the second writer loses deterministically.
type fingerprintClaim struct {
	ID         string // themeID|fingerprint
	DocumentID string
	ClaimedAt  time.Time
}

func claimID(themeID, fingerprint string) string {
	return themeID + "|" + fingerprint
}

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// CreateIfAbsent stores doc unless its (theme, fingerprint) pair is already
// claimed. The claim insert is the atomic arbiter: concurrent workers
// racing on the same fingerprint see exactly one winner.
func (s *DocumentStorage) CreateIfAbsent(ctx context.Context, doc *models.ExtractedDocument) (bool, error) {
	if doc.ID == "" {
		return false, fmt.Errorf("document ID is required")
	}
	if doc.ThemeID == "" || doc.Fingerprint == "" {
		return false, fmt.Errorf("document theme ID and fingerprint are required")
	}
	if doc.ScrapedAt.IsZero() {
		doc.ScrapedAt = time.Now()
	}

	claim := &fingerprintClaim{
		ID:         claimID(doc.ThemeID, doc.Fingerprint),
		DocumentID: doc.ID,
		ClaimedAt:  time.Now(),
	}
	if err := s.db.Store().Insert(claim.ID, claim); err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim fingerprint: %w", err)
	}

	if err := s.db.Store().Insert(doc.ID, doc); err != nil {
		// Roll the claim back so the fingerprint is not orphaned.
		if delErr := s.db.Store().Delete(claim.ID, &fingerprintClaim{}); delErr != nil && delErr != badgerhold.ErrNotFound {
			s.logger.Warn().Err(delErr).Str("claim_id", claim.ID).Msg("Failed to roll back fingerprint claim")
		}
		return false, fmt.Errorf("failed to save document: %w", err)
	}

	return true, nil
}

// Delete removes a document and releases its fingerprint claim.
func (s *DocumentStorage) Delete(ctx context.Context, docID string) error {
	doc, err := s.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	if err := s.db.Store().Delete(docID, &models.ExtractedDocument{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cid := claimID(doc.ThemeID, doc.Fingerprint)
	if err := s.db.Store().Delete(cid, &fingerprintClaim{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to release fingerprint claim: %w", err)
	}
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, docID string) (*models.ExtractedDocument, error) {
	var doc models.ExtractedDocument
	if err := s.db.Store().Get(docID, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("document not found: %s", docID)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) HasFingerprint(ctx context.Context, themeID, fingerprint string) (bool, error) {
	var claim fingerprintClaim
	err := s.db.Store().Get(claimID(themeID, fingerprint), &claim)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return true, nil
}

func (s *DocumentStorage) ListDocuments(ctx context.Context, opts *interfaces.DocumentListOptions) ([]*models.ExtractedDocument, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil {
		if opts.ThemeID != "" {
			query = query.And("ThemeID").Eq(opts.ThemeID)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
	}

	var docs []models.ExtractedDocument
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]*models.ExtractedDocument, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

func (s *DocumentStorage) Stats(ctx context.Context) (*models.DocumentStats, error) {
	var docs []models.ExtractedDocument
	if err := s.db.Store().Find(&docs, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to load documents for stats: %w", err)
	}

	stats := &models.DocumentStats{
		TotalDocuments:    len(docs),
		DocumentsByTheme:  make(map[string]int),
		DocumentsByDomain: make(map[string]int),
	}

	totalLength := 0
	for i := range docs {
		stats.DocumentsByTheme[docs[i].ThemeID]++
		if docs[i].SourceDomain != "" {
			stats.DocumentsByDomain[docs[i].SourceDomain]++
		}
		totalLength += docs[i].TextLength
	}
	if len(docs) > 0 {
		stats.AverageTextLength = totalLength / len(docs)
	}
	return stats, nil
}
