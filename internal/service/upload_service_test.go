package service

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeStorage) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.objects == nil {
		f.objects, f.types = map[string][]byte{}, map[string]string{}
	}
	f.objects[key] = data
	f.types[key] = contentType
	return "https://media.example.com/" + key, nil
}

type fakeAssetRepo struct {
	assets []*models.MediaAsset
	err    error
}

func (r *fakeAssetRepo) Create(_ context.Context, ma *models.MediaAsset) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.assets = append(r.assets, ma)
	return int64(len(r.assets)), nil
}

func (r *fakeAssetRepo) ListByUserID(_ context.Context, userID int64) ([]*models.MediaAsset, error) {
	return r.assets, nil
}

func TestUploadImage(t *testing.T) {
	storage := &fakeStorage{}
	assets := &fakeAssetRepo{}
	s := NewUploadService(storage, assets)

	data := append(append([]byte{}, pngHeader...), make([]byte, 64)...)
	img, err := s.UploadImage(context.Background(), testUser, data, "  a gopher  ")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^7/[A-Za-z0-9_-]{21}\.png$`), img.FileName)
	assert.Equal(t, "https://media.example.com/"+img.FileName, img.URL)
	assert.Equal(t, "a gopher", img.AltText)
	assert.Equal(t, "image/png", storage.types[img.FileName])

	require.Len(t, assets.assets, 1)
	assert.Equal(t, int64(len(data)), assets.assets[0].FileSize)
	assert.Equal(t, img.URL, assets.assets[0].FileURL)
}

func TestUploadImageValidation(t *testing.T) {
	s := NewUploadService(&fakeStorage{}, &fakeAssetRepo{})
	ctx := context.Background()

	cases := map[string]struct {
		user int64
		data []byte
		alt  string
		want error
	}{
		"anonymous":   {user: 0, data: pngHeader, alt: "x", want: ErrUnauthorized},
		"missing alt": {user: testUser, data: pngHeader, alt: " ", want: ErrInvalidInput},
		"empty file":  {user: testUser, data: nil, alt: "x", want: ErrInvalidInput},
		"too large":   {user: testUser, data: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxUploadBytes)...), alt: "x", want: ErrInvalidInput},
		"not image":   {user: testUser, data: []byte("%PDF-1.7 not an image"), alt: "x", want: ErrInvalidInput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.UploadImage(ctx, tc.user, tc.data, tc.alt)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUploadImageStorageFailures(t *testing.T) {
	_, err := NewUploadService(&fakeStorage{err: errors.New("bucket gone")}, &fakeAssetRepo{}).
		UploadImage(context.Background(), testUser, pngHeader, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")

	img, err := NewUploadService(&fakeStorage{}, &fakeAssetRepo{err: errors.New("db down")}).
		UploadImage(context.Background(), testUser, pngHeader, "x")
	require.NoError(t, err)
	assert.NotEmpty(t, img.URL)
}
