package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	linkedInAuthURL   = "https://www.linkedin.com/oauth/v2/authorization"
	linkedInTokenURL  = "https://www.linkedin.com/oauth/v2/accessToken"
	LinkedInAPIBase   = "https://api.linkedin.com"
	linkedInUploadKey = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
	linkedInShareKey  = "com.linkedin.ugc.ShareContent"
)

type LinkedInService interface {
	OAuthProvider
	UserInfo(ctx context.Context, accessToken string) (*transfer.LinkedInUserInfo, error)
}

type linkedInService struct {
	oauth   *oauth2.Config
	apiBase string
	client  *http.Client
	images  ImageService
}

func NewLinkedInService(cfg config.Config, apiBase string, client *http.Client, images ImageService) LinkedInService {
	if apiBase == "" {
		apiBase = LinkedInAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &linkedInService{
		oauth: &oauth2.Config{
			ClientID:     cfg.LinkedIn.ClientID,
			ClientSecret: cfg.LinkedIn.ClientSecret,
			RedirectURL:  cfg.LinkedIn.RedirectURI,
			Scopes:       []string{"openid", "profile", "email", "w_member_social"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   linkedInAuthURL,
				TokenURL:  linkedInTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  client,
		images:  images,
	}
}

func (s *linkedInService) Platform() platform.ID { return platform.LinkedIn }

func (s *linkedInService) AuthURL(state, _ string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *linkedInService) Exchange(ctx context.Context, code, _ string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, upstream("LinkedIn token exchange failed: %v", err)
	}
	return token, nil
}

func (s *linkedInService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	return s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

func (s *linkedInService) UserInfo(ctx context.Context, accessToken string) (*transfer.LinkedInUserInfo, error) {
	var info transfer.LinkedInUserInfo
	if err := doJSON(ctx, s.client, http.MethodGet, s.apiBase+"/v2/userinfo", accessToken, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *linkedInService) Publish(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) (*transfer.PublishResult, error) {
	author := "urn:li:person:" + conn.PlatformUserID

	var media []transfer.LinkedInMedia
	for _, img := range req.Images {
		asset, err := s.uploadImage(ctx, conn.AccessToken, author, img.URL)
		if err != nil {
			return nil, err
		}
		media = append(media, transfer.LinkedInMedia{
			Status:      "READY",
			Description: transfer.LinkedInText{Text: img.AltText},
			Media:       asset,
			Title:       transfer.LinkedInText{Text: "Image"},
		})
	}

	category := "NONE"
	if len(media) > 0 {
		category = "IMAGE"
	}

	post := transfer.LinkedInUGCPost{
		Author:         author,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]transfer.LinkedInShareContent{
			linkedInShareKey: {
				ShareCommentary:    transfer.LinkedInText{Text: platform.ComposeText(req.Content, req.Tags, platform.LinkedIn)},
				ShareMediaCategory: category,
				Media:              media,
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var created transfer.LinkedInUGCPostResponse
	err := doJSON(ctx, s.client, http.MethodPost, s.apiBase+"/v2/ugcPosts", conn.AccessToken, post, &created,
		"X-Restli-Protocol-Version", "2.0.0")
	if err != nil {
		return nil, err
	}

	return &transfer.PublishResult{
		PlatformPostID:  created.ID,
		PlatformPostURL: "https://www.linkedin.com/feed/update/" + created.ID,
	}, nil
}

// uploadImage registers an upload slot, pushes the compressed bytes and
// returns the asset URN to reference from the share.
func (s *linkedInService) uploadImage(ctx context.Context, accessToken, owner, imageURL string) (string, error) {
	var register transfer.LinkedInRegisterUploadRequest
	register.RegisterUploadRequest.Recipes = []string{"urn:li:digitalmediaRecipe:feedshare-image"}
	register.RegisterUploadRequest.Owner = owner
	register.RegisterUploadRequest.ServiceRelationships = []transfer.LinkedInServiceRelationship{
		{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"},
	}

	var registered transfer.LinkedInRegisterUploadResponse
	err := doJSON(ctx, s.client, http.MethodPost, s.apiBase+"/v2/assets?action=registerUpload", accessToken,
		register, &registered, "X-Restli-Protocol-Version", "2.0.0")
	if err != nil {
		return "", err
	}

	uploadURL := registered.Value.UploadMechanism[linkedInUploadKey].UploadURL
	if uploadURL == "" || registered.Value.Asset == "" {
		return "", upstream("LinkedIn did not return an upload slot")
	}

	data, err := s.images.Prepare(ctx, imageURL, imageLimitKB(platform.LinkedIn))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	if err := send(s.client, req, nil); err != nil {
		return "", err
	}

	return registered.Value.Asset, nil
}
