package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const MaxUploadBytes = 5 << 20

type UploadService interface {
	UploadImage(ctx context.Context, userID int64, data []byte, altText string) (*transfer.UploadedImage, error)
}

type uploadService struct {
	storage ObjectStorage
	ma      repository.MediaAssetRepository
}

func NewUploadService(storage ObjectStorage, ma repository.MediaAssetRepository) UploadService {
	return &uploadService{
		storage: storage,
		ma:      ma,
	}
}

func (s *uploadService) UploadImage(ctx context.Context, userID int64, data []byte, altText string) (*transfer.UploadedImage, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	altText = strings.TrimSpace(altText)
	if altText == "" {
		return nil, invalidInput("Alt text is required")
	}
	if len(data) == 0 {
		return nil, invalidInput("No file provided")
	}
	if len(data) > MaxUploadBytes {
		return nil, invalidInput("File too large. Maximum size is 5MB.")
	}
	if !filetype.IsImage(data) {
		return nil, invalidInput("Invalid file type. Only images are allowed.")
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return nil, invalidInput("Invalid file type. Only images are allowed.")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d/%s.%s", userID, id, kind.Extension)

	url, err := s.storage.Put(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	_, err = s.ma.Create(ctx, &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  url,
		AltText:  altText,
	})
	if err != nil {
		slog.Error("failed to record media asset", "key", key, "error", err)
	}

	return &transfer.UploadedImage{URL: url, FileName: key, AltText: altText}, nil
}
