package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/app/repository"
	"github.com/ManuelReschke/AdMarket/internal/pkg/objectstore"
)

// sniffLen is how much of the head mimetype needs for the accepted formats.
const sniffLen = 3072

// Service stores payment proofs in the object store and records them.
type Service struct {
	store    objectstore.Store
	files    repository.UploadFileRepository
	maxBytes int64
	now      func() time.Time
}

// NewService creates an upload service. maxBytes <= 0 uses MaxProofSize.
func NewService(store objectstore.Store, files repository.UploadFileRepository, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = MaxProofSize
	}
	return &Service{store: store, files: files, maxBytes: maxBytes, now: time.Now}
}

// SaveProof validates body, uploads it and creates its UploadFile record.
// size is the declared length of body.
func (s *Service) SaveProof(ctx context.Context, userID uint, filename string, body io.Reader, size int64) (*models.UploadFile, error) {
	if size > s.maxBytes {
		return nil, ErrTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mime, ext, err := ValidateProofBySniff(filename, head)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := fmt.Sprintf("proofs/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), ext)
	if err := s.store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), body), size, mime); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	file := &models.UploadFile{
		UserID:       userID,
		ObjectKey:    key,
		OriginalName: filepath.Base(filename),
		MimeType:     mime,
		Size:         size,
	}
	if err := s.files.Create(file); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Warnf("[Upload] orphaned object %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("record upload: %w", err)
	}

	log.Infof("[Upload] user %d stored payment proof %d as %s (%s, %d bytes)", userID, file.ID, key, mime, size)
	return file, nil
}

// Discard removes an upload whose payment request could not be created.
func (s *Service) Discard(ctx context.Context, file *models.UploadFile) {
	if file == nil {
		return
	}
	if err := s.files.Delete(file.ID); err != nil {
		log.Warnf("[Upload] delete upload record %d: %v", file.ID, err)
	}
	if err := s.store.Delete(ctx, file.ObjectKey); err != nil {
		log.Warnf("[Upload] delete object %s: %v", file.ObjectKey, err)
	}
}
