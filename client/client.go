package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/raphi011/timeline/internal/model"
)

type GroupedTestCases = model.GroupedTestCases
type VerificationSummary = model.VerificationSummaryHTTP

type Client struct {
	http *http.Client
	host string
}

// RequestError is returned for responses with a non 2xx status code. Kind,
// Message and Tags are set if the server described the failure.
type RequestError struct {
	ResponseCode int
	Kind         string
	Message      string
	Tags         map[string]any
}

func (e RequestError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("request failed with status %d", e.ResponseCode)
	}

	return fmt.Sprintf("request failed with status %d: %s: %s", e.ResponseCode, e.Kind, e.Message)
}

func New(host string, c *http.Client) Client {
	return Client{http: c, host: host}
}

// NormalizeJSON normalizes raw grouped test cases of the recording and returns the canonical JSON.
func (c Client) NormalizeJSON(ctx context.Context, recordingID string, groupedTestCases []byte) ([]byte, error) {
	req, err := http.NewRequest("POST", c.url("/recordings/%s/normalize", url.PathEscape(recordingID)), bytes.NewReader(groupedTestCases))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	var body json.RawMessage

	if err = c.do(ctx, req, &body); err != nil {
		return nil, err
	}

	return body, nil
}

func (c Client) Normalize(ctx context.Context, recordingID string, groupedTestCases []byte) (GroupedTestCases, error) {
	body, err := c.NormalizeJSON(ctx, recordingID, groupedTestCases)
	if err != nil {
		return GroupedTestCases{}, err
	}

	var g GroupedTestCases

	if err = json.Unmarshal(body, &g); err != nil {
		return GroupedTestCases{}, err
	}

	return g, nil
}

// Verify runs the verification of the fixtures configured on the server.
func (c Client) Verify(ctx context.Context) (VerificationSummary, error) {
	req, err := http.NewRequest("POST", c.url("/verifications"), nil)
	if err != nil {
		return VerificationSummary{}, err
	}

	var s VerificationSummary

	if err = c.do(ctx, req, &s); err != nil {
		return VerificationSummary{}, err
	}

	return s, nil
}

func (c Client) url(path string, args ...any) string {
	return fmt.Sprintf(c.host+path, args...)
}

func (c Client) do(ctx context.Context, req *http.Request, body any) error {
	req = req.WithContext(ctx)
	req.Header.Add("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		reqErr := RequestError{ResponseCode: res.StatusCode}

		var e model.ErrorHTTP
		if data, err := io.ReadAll(res.Body); err == nil && json.Unmarshal(data, &e) == nil {
			reqErr.Kind = e.Kind
			reqErr.Message = e.Message
			reqErr.Tags = e.Tags
		}

		return reqErr
	}

	if body != nil {
		d := json.NewDecoder(res.Body)

		if err = d.Decode(body); err != nil {
			return err
		}
	}

	return nil
}
