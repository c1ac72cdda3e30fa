package instagram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"igfeedprobe/pkg/errors"
)

// Login authenticates as username. A persisted session for the same account is
// reused when the server still accepts it; otherwise a password login is made
// with the persisted device fingerprint and the new session is saved.
func (c *Client) Login(ctx context.Context, username, password string) error {
	log := c.logger.WithField("username", username)

	if c.store != nil {
		saved, err := c.store.Load()
		if err != nil {
			log.WithError(err).Warn("Could not load saved session")
		}
		if saved != nil && saved.Username == username {
			c.restore(saved)
			if saved.Authenticated() {
				_, err := c.CurrentUser(ctx)
				if err == nil {
					log.Info("Reusing saved session")
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithError(err).Warn("Saved session rejected, logging in again")
				c.state.Authorization = ""
				c.state.UserID = ""
			}
		}
	}

	if err := c.passwordLogin(ctx, username, password); err != nil {
		return err
	}
	log.WithField("user_id", c.state.UserID).Info("Logged in")

	if c.store != nil {
		c.state.SavedAt = time.Now().UTC()
		if err := c.store.Save(c.state); err != nil {
			log.WithError(err).Warn("Could not save session")
		}
	}
	return nil
}

func (c *Client) restore(saved *SessionState) {
	state := *saved
	state.Device.complete()
	c.state = &state
}

func (c *Client) passwordLogin(ctx context.Context, username, password string) error {
	d := c.state.Device
	payload := map[string]interface{}{
		"jazoest":             jazoest(d.PhoneID),
		"country_codes":       `[{"country_code":"1","source":["default"]}]`,
		"phone_id":            d.PhoneID,
		"enc_password":        fmt.Sprintf("#PWD_INSTAGRAM:0:%d:%s", time.Now().Unix(), password),
		"username":            username,
		"adid":                d.AdvertisingID,
		"guid":                d.UUID,
		"device_id":           d.AndroidDeviceID,
		"google_tokens":       "[]",
		"login_attempt_count": "0",
	}

	var resp loginResponse
	if err := c.PrivateRequest(ctx, "accounts/login/", payload, RequestOptions{WithSignature: true}, &resp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if c.state.Authorization == "" {
		return errors.New(errors.ErrorTypeAuth, 0, "login response carried no authorization token")
	}

	c.state.Username = username
	c.state.UserID = resp.LoggedInUser.PK.String()
	return nil
}

// CurrentUser returns the authenticated account, validating the session
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var resp userResponse
	query := url.Values{"edit": {"true"}}
	if err := c.PrivateRequest(ctx, "accounts/current_user/", nil, RequestOptions{Query: query}, &resp); err != nil {
		return nil, err
	}
	if resp.User.PK == "" {
		return nil, errors.New(errors.ErrorTypeAuth, 0, "session is not authenticated")
	}
	return &resp.User, nil
}

// Logout ends the server session and forgets the persisted one
func (c *Client) Logout(ctx context.Context) error {
	if !c.state.Authenticated() {
		return nil
	}

	d := c.state.Device
	payload := map[string]interface{}{
		"phone_id":          d.PhoneID,
		"_uuid":             d.UUID,
		"guid":              d.UUID,
		"device_id":         d.AndroidDeviceID,
		"one_tap_app_login": "true",
	}
	err := c.PrivateRequest(ctx, "accounts/logout/", payload, RequestOptions{WithSignature: true}, nil)

	c.state.Authorization = ""
	c.state.UserID = ""
	if c.store != nil {
		if delErr := c.store.Delete(); delErr != nil {
			c.logger.WithError(delErr).Warn("Could not delete saved session")
		}
	}

	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	c.logger.Info("Logged out")
	return nil
}

// jazoest is the checksum the app derives from the phone id
func jazoest(phoneID string) string {
	sum := 0
	for _, b := range []byte(phoneID) {
		sum += int(b)
	}
	return "2" + strconv.Itoa(sum)
}
