package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/config"
)

// Supported providers
const (
	ProviderGoogleV2  = "google_v2"
	ProviderGoogleV3  = "google_v3"
	ProviderTurnstile = "turnstile"
	ProviderHCaptcha  = "hcaptcha"
)

const (
	googleVerifyURL    = "https://www.google.com/recaptcha/api/siteverify"
	turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	hcaptchaVerifyURL  = "https://api.hcaptcha.com/siteverify"
)

// Provider verifies a client-solved challenge token. A nil error means
// the submission may proceed.
type Provider interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// New builds the verifier for the configured provider. Returns nil when
// CAPTCHA is not configured; callers treat a nil provider as an open gate.
func New(cfg config.CaptchaConfig) (Provider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := &http.Client{Timeout: 10 * time.Second}

	switch cfg.Provider {
	case ProviderGoogleV2:
		return &siteVerify{client: client, url: googleVerifyURL, secret: cfg.SecretKey}, nil
	case ProviderGoogleV3:
		return &scoreVerify{
			siteVerify: siteVerify{client: client, url: googleVerifyURL, secret: cfg.SecretKey},
			minScore:   cfg.MinScore,
		}, nil
	case ProviderTurnstile:
		return &siteVerify{client: client, url: turnstileVerifyURL, secret: cfg.SecretKey}, nil
	case ProviderHCaptcha:
		return &siteVerify{client: client, url: hcaptchaVerifyURL, secret: cfg.SecretKey}, nil
	default:
		return nil, fmt.Errorf("unknown captcha provider: %s", cfg.Provider)
	}
}

// verifyResponse is the common shape of all four providers' answers
type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"` // google_v3 only
	ErrorCodes []string `json:"error-codes"`
}

// siteVerify is the shared success/failure verifier. Google v2,
// Turnstile and hCaptcha all speak the same form-encoded protocol.
type siteVerify struct {
	client *http.Client
	url    string
	secret string
}

func (v *siteVerify) Verify(ctx context.Context, token, remoteIP string) error {
	resp, err := v.check(ctx, token, remoteIP)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("captcha verification failed: %s", strings.Join(resp.ErrorCodes, ", "))
	}
	return nil
}

func (v *siteVerify) check(ctx context.Context, token, remoteIP string) (*verifyResponse, error) {
	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("captcha verification returned status %d", httpResp.StatusCode)
	}

	result := &verifyResponse{}
	if err := json.NewDecoder(httpResp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to parse captcha response: %w", err)
	}
	return result, nil
}

// scoreVerify adds the reCAPTCHA v3 score threshold on top of siteVerify
type scoreVerify struct {
	siteVerify
	minScore float64
}

func (v *scoreVerify) Verify(ctx context.Context, token, remoteIP string) error {
	resp, err := v.check(ctx, token, remoteIP)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("captcha verification failed: %s", strings.Join(resp.ErrorCodes, ", "))
	}
	if resp.Score < v.minScore {
		return fmt.Errorf("captcha score %.2f below threshold %.2f", resp.Score, v.minScore)
	}
	return nil
}
