package zitadel

import (
	"context"
	"net/http"
	"time"
)

// Details is the change metadata attached to most responses.
type Details struct {
	Sequence      string    `json:"sequence,omitempty"`
	ChangeDate    time.Time `json:"changeDate,omitempty"`
	ResourceOwner string    `json:"resourceOwner,omitempty"`
}

// GeneralSettings are instance wide defaults.
type GeneralSettings struct {
	Details            *Details `json:"details,omitempty"`
	DefaultOrgID       string   `json:"defaultOrgId,omitempty"`
	DefaultLanguage    string   `json:"defaultLanguage,omitempty"`
	SupportedLanguages []string `json:"supportedLanguages,omitempty"`
}

// SettingsService wraps the settings API.
type SettingsService struct {
	c *Client
}

func (c *Client) Settings() *SettingsService { return &SettingsService{c: c} }

// GetGeneralSettings returns the instance's default organization and
// languages. Any authenticated principal may call it.
func (s *SettingsService) GetGeneralSettings(ctx context.Context) (*GeneralSettings, error) {
	var out GeneralSettings
	if err := s.c.Do(ctx, http.MethodGet, "/v2/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
