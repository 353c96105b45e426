package registryhttp

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const userAgent = "dependency-checker/1.0"

// ErrMalformedBody is returned by ResponseBodyToJson when the body was read
// but is not valid JSON for the target.
var ErrMalformedBody = errors.New("malformed response body")

type RegistryRequestConfig struct {
	Method  string
	URL     string
	Headers map[string]string
	Timeout int
}

// defaultClient serves callers that do not bring their own client.
var defaultClient = NewClient(true)

// NewClient returns a client with its own pooled transport. Share one client
// across requests; every client holds idle connections until they time out.
func NewClient(verify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: !verify,
	}
	return &http.Client{Transport: transport}
}

func DefaultRegistryRequestConfig() RegistryRequestConfig {
	return RegistryRequestConfig{
		Method: "GET",
		Headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": userAgent,
		},
		Timeout: 10,
	}
}

// RegistryRequest performs a single request through client, or the package
// default when client is nil. A non-200 status is not an error: the caller
// decides what a status means. Transport failures (timeouts, refused
// connections, DNS) are returned as errors.
func RegistryRequest(ctx context.Context, client *http.Client, registryRequest RegistryRequestConfig) (*http.Response, error) {
	if _, err := url.Parse(registryRequest.URL); err != nil {
		return nil, fmt.Errorf("RegistryRequest:: failed to parse URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, registryRequest.Method, registryRequest.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("RegistryRequest:: failed to create request: %w", err)
	}

	for k, v := range registryRequest.Headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = defaultClient
	}
	// The copy shares the transport; only the timeout differs per request.
	requestClient := *client
	requestClient.Timeout = time.Duration(registryRequest.Timeout) * time.Second

	resp, err := requestClient.Do(req)
	if err != nil {
		log.Debugf("RegistryRequest:: %s %s failed: %v", registryRequest.Method, registryRequest.URL, err)
		return nil, err
	}
	log.Debugf("RegistryRequest:: %s %s -> %d", registryRequest.Method, registryRequest.URL, resp.StatusCode)
	return resp, nil
}

func ResponseBodyToJson(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
