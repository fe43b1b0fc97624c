package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"

	"github.com/disintegration/imaging"
)

const (
	maxFetchedImageBytes = 20 << 20
	maxImageDimension    = 2048
	resizedJPEGQuality   = 80
)

var ErrUnableToCompress = errors.New("unable to compress image")

type ImageService interface {
	// Prepare downloads an image and shrinks it under maxKB.
	Prepare(ctx context.Context, url string, maxKB int) ([]byte, error)
}

type imageService struct {
	client *http.Client
}

func NewImageService(client *http.Client) ImageService {
	if client == nil {
		client = http.DefaultClient
	}
	return &imageService{client: client}
}

func (s *imageService) Prepare(ctx context.Context, url string, maxKB int) ([]byte, error) {
	data, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return CompressImage(data, maxKB)
}

func (s *imageService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchedImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxFetchedImageBytes {
		return nil, fmt.Errorf("image at %s is larger than %d bytes", url, maxFetchedImageBytes)
	}
	return data, nil
}

// CompressImage returns data unchanged when it already fits in maxKB.
// Otherwise it re-encodes as JPEG at falling quality, and as a last resort
// shrinks the image to fit inside 2048x2048.
func CompressImage(data []byte, maxKB int) ([]byte, error) {
	if fits(len(data), maxKB) {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	for quality := 85; quality > 20; quality -= 10 {
		out, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if fits(len(out), maxKB) {
			return out, nil
		}
	}

	out, err := encodeJPEG(fitWithin(img, maxImageDimension), resizedJPEGQuality)
	if err != nil {
		return nil, err
	}
	if fits(len(out), maxKB) {
		return out, nil
	}

	return nil, fmt.Errorf("%w to under %d KB (got %d KB)", ErrUnableToCompress, maxKB, len(out)/1024)
}

func fits(size, maxKB int) bool {
	return float64(size)/1024 <= float64(maxKB)
}

// fitWithin scales img down to fit a size x size box; it never enlarges.
func fitWithin(img image.Image, size int) image.Image {
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
