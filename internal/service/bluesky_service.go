package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

const (
	BlueskyDefaultService = "https://bsky.social"
	blueskyPostURL        = "https://bsky.app/profile/%s/post/%s"
)

type BlueskyService interface {
	Adapter
	Login(ctx context.Context, handle, password string) (*transfer.BlueskySession, error)
}

type blueskyService struct {
	baseURL string
	client  *http.Client
	images  ImageService
	conns   ConnectionService
}

func NewBlueskyService(baseURL string, client *http.Client, images ImageService, conns ConnectionService) BlueskyService {
	if baseURL == "" {
		baseURL = BlueskyDefaultService
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &blueskyService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		images:  images,
		conns:   conns,
	}
}

func (s *blueskyService) Platform() platform.ID { return platform.Bluesky }

func (s *blueskyService) xrpc(method string) string {
	return s.baseURL + "/xrpc/" + method
}

func (s *blueskyService) Login(ctx context.Context, handle, password string) (*transfer.BlueskySession, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" || password == "" {
		return nil, invalidInput("Handle and app password are required")
	}

	var session transfer.BlueskySession
	err := doJSON(ctx, s.client, http.MethodPost, s.xrpc("com.atproto.server.createSession"), "",
		transfer.BlueskyLogin{Identifier: handle, Password: password}, &session)
	if err != nil {
		return nil, upstream("Bluesky login failed: %v", err)
	}
	return &session, nil
}

// resume refreshes the stored session and persists the rotated tokens.
// When the refresh is rejected the stored access token is tried as is.
func (s *blueskyService) resume(ctx context.Context, conn *models.PlatformConnection) string {
	if conn.RefreshToken == "" {
		return conn.AccessToken
	}

	var session transfer.BlueskySession
	err := doJSON(ctx, s.client, http.MethodPost, s.xrpc("com.atproto.server.refreshSession"), conn.RefreshToken, nil, &session)
	if err != nil {
		slog.Info("bluesky session refresh failed", "user_id", conn.UserID, "error", err)
		return conn.AccessToken
	}

	if s.conns != nil && conn.ID != 0 {
		if err := s.conns.UpdateTokens(ctx, conn, session.AccessJwt, session.RefreshJwt, nil); err != nil {
			slog.Error("failed to persist bluesky session", "user_id", conn.UserID, "error", err)
		}
	}
	return session.AccessJwt
}

func (s *blueskyService) Publish(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) (*transfer.PublishResult, error) {
	accessJwt := s.resume(ctx, conn)

	text := platform.ComposeText(req.Content, req.Tags, platform.Bluesky)
	record := transfer.BlueskyPostRecord{
		Type:      "app.bsky.feed.post",
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Facets:    hashtagFacets(req.Content, req.Tags, text),
	}

	if len(req.Images) > 0 {
		embed := &transfer.BlueskyEmbed{Type: "app.bsky.embed.images"}
		for _, img := range req.Images {
			blob, err := s.uploadBlob(ctx, accessJwt, img.URL)
			if err != nil {
				return nil, err
			}
			embed.Images = append(embed.Images, transfer.BlueskyImage{Alt: img.AltText, Image: *blob})
		}
		record.Embed = embed
	}

	var created transfer.BlueskyCreateRecordResponse
	err := doJSON(ctx, s.client, http.MethodPost, s.xrpc("com.atproto.repo.createRecord"), accessJwt,
		transfer.BlueskyCreateRecord{Repo: conn.PlatformUserID, Collection: "app.bsky.feed.post", Record: record}, &created)
	if err != nil {
		return nil, err
	}

	rkey := created.URI[strings.LastIndex(created.URI, "/")+1:]
	return &transfer.PublishResult{
		PlatformPostID:  created.URI,
		PlatformPostURL: fmt.Sprintf(blueskyPostURL, conn.PlatformUsername, rkey),
	}, nil
}

func (s *blueskyService) uploadBlob(ctx context.Context, accessJwt, imageURL string) (*transfer.BlueskyBlob, error) {
	data, err := s.images.Prepare(ctx, imageURL, imageLimitKB(platform.Bluesky))
	if err != nil {
		return nil, err
	}

	mime := "image/jpeg"
	if kind, err := filetype.Match(data); err == nil && filetype.IsImage(data) {
		mime = kind.MIME.Value
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.xrpc("com.atproto.repo.uploadBlob"), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mime)
	req.Header.Set("Authorization", "Bearer "+accessJwt)

	var uploaded transfer.BlueskyUploadResponse
	if err := send(s.client, req, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded.Blob, nil
}

// hashtagFacets marks each tag where it is rendered in the block that
// follows content. Offsets are UTF-8 byte positions in text.
func hashtagFacets(content string, tags []string, text string) []transfer.BlueskyFacet {
	if len(text) <= len(content) {
		return nil
	}

	var facets []transfer.BlueskyFacet
	cursor := len(content)
	for _, tag := range platform.NormalizeTags(tags) {
		rendered := "#" + tag
		idx := strings.Index(text[cursor:], rendered)
		if idx < 0 {
			continue
		}
		start := cursor + idx
		end := start + len(rendered)
		facets = append(facets, transfer.BlueskyFacet{
			Index:    transfer.BlueskyByteSlice{ByteStart: start, ByteEnd: end},
			Features: []transfer.BlueskyFeature{{Type: "app.bsky.richtext.facet#tag", Tag: tag}},
		})
		cursor = end
	}
	return facets
}
