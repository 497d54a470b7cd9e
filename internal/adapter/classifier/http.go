// internal/adapter/classifier/http.go

package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// DefaultTimeout bounds a single classification call
const DefaultTimeout = 10 * time.Second

// classifyRequest is the body sent to the model service
type classifyRequest struct {
	Image string `json:"image"`
}

// classifyResponse is the model service's answer
type classifyResponse struct {
	IssueType  string  `json:"issue_type"`
	Confidence float64 `json:"confidence"`
}

// HTTPClassifier calls an image classification service over HTTP
type HTTPClassifier struct {
	url        string
	httpClient *http.Client
}

// NewHTTPClassifier creates a new classifier posting to url
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClassifier{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify implements complaint.Classifier
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte) (complaint.Classification, error) {
	body, err := json.Marshal(classifyRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return complaint.Classification{}, fmt.Errorf("error encoding classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return complaint.Classification{}, fmt.Errorf("error creating classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return complaint.Classification{}, fmt.Errorf("error calling classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return complaint.Classification{}, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return complaint.Classification{}, fmt.Errorf("error decoding classifier response: %w", err)
	}

	issueType, ok := complaint.ParseIssueType(out.IssueType)
	if !ok {
		issueType = complaint.IssueTypeOther
	}

	return complaint.Classification{
		IssueType:  issueType,
		Confidence: out.Confidence,
	}, nil
}
