package wiki

import (
	"context"
	"encoding/json"
	"fmt"

	"wikiquery/pkg/wiki/query"
)

// AllowedFileExts returns the file extensions the wiki accepts for upload.
func (c *Client) AllowedFileExts(ctx context.Context) ([]string, error) {
	c.logger.Debug("Fetching allowed file extensions")
	r, err := c.single(ctx, c.coord.NewSession(query.AllowedFileExts))
	if err != nil {
		return nil, err
	}
	return stringsOf(r.List(query.AllowedFileExts.ResultKey()), "ext"), nil
}

// UserInfo describes the account the client is acting as.
type UserInfo struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Anonymous *string  `json:"anon,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

// IsAnonymous reports whether the client is not logged in.
func (u UserInfo) IsAnonymous() bool { return u.Anonymous != nil || u.ID == 0 }

// WhoAmI returns the account the session cookies belong to. Anonymous
// clients get their IP address as name.
func (c *Client) WhoAmI(ctx context.Context) (UserInfo, error) {
	var info UserInfo
	r, err := c.single(ctx, c.coord.NewSession(query.UserInfo))
	if err != nil {
		return info, err
	}
	raw := r.Meta(query.UserInfo.ResultKey())
	if raw == nil {
		return info, fmt.Errorf("%w: no userinfo", ErrUnexpectedReply)
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return info, fmt.Errorf("%w: userinfo: %v", ErrUnexpectedReply, err)
	}
	return info, nil
}

// CSRFToken fetches an edit token. Anonymous clients receive "+\\".
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	return c.token(ctx, query.TokensCSRF, "csrftoken")
}

// LoginToken fetches the token the login action requires.
func (c *Client) LoginToken(ctx context.Context) (string, error) {
	return c.token(ctx, query.TokensLogin, "logintoken")
}

func (c *Client) token(ctx context.Context, tmpl query.Template, field string) (string, error) {
	r, err := c.single(ctx, c.coord.NewSession(tmpl))
	if err != nil {
		return "", err
	}
	raw := r.Meta(tmpl.ResultKey())
	if tok := stringField(raw, field); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("%w: no %s", ErrUnexpectedReply, field)
}
