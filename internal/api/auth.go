package api

import (
	"context"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for an access token and installs it on the
// client. Bad credentials come back as ErrSessionExpired so callers funnel
// every auth failure through the same login flow.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	c.SetToken(resp.AccessToken)
	c.log.Info("logged in", "email", email)
	return resp.AccessToken, nil
}
