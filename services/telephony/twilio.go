package telephony

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"brightcall/utils"

	"go.uber.org/zap"
)

const apiBaseURL = "https://api.twilio.com/2010-04-01"

// Terminal call statuses reported by the status callback.
const (
	CallStatusCompleted = "completed"
	CallStatusBusy      = "busy"
	CallStatusFailed    = "failed"
	CallStatusNoAnswer  = "no-answer"
	CallStatusCanceled  = "canceled"
)

// IsTerminalStatus reports whether a callback status means the call is over.
func IsTerminalStatus(status string) bool {
	switch status {
	case CallStatusCompleted, CallStatusBusy, CallStatusFailed, CallStatusNoAnswer, CallStatusCanceled:
		return true
	}
	return false
}

// Client places calls and sends SMS through the Twilio REST API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
}

// NewClient builds a Twilio REST client. from is the E.164 caller number.
func NewClient(accountSID, authToken, from string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// PlaceCall dials `to` and points the answered call at the given TwiML URL.
// statusCallbackURL receives lifecycle updates and may be empty. Returns the
// provider call SID.
func (c *Client) PlaceCall(to, twimlURL, statusCallbackURL string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Url", twimlURL)
	if statusCallbackURL != "" {
		form.Set("StatusCallback", statusCallbackURL)
		form.Set("StatusCallbackEvent", "completed")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", apiBaseURL, c.accountSID)
	var result struct {
		SID string `json:"sid"`
	}
	if err := c.postForm(endpoint, form, &result); err != nil {
		return "", fmt.Errorf("place call to %s: %w", to, err)
	}

	utils.GetLogger().Info("Outbound call placed",
		zap.String("call_sid", result.SID),
		zap.String("to", to),
	)
	return result.SID, nil
}

// SendSMS sends a text message from the configured caller number.
func (c *Client) SendSMS(to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", apiBaseURL, c.accountSID)
	if err := c.postForm(endpoint, form, nil); err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	return nil
}

func (c *Client) postForm(endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("provider returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
