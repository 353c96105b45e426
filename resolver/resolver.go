// Package resolver looks up the latest published version of a package by
// asking a list of registries in order.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"dependency-checker/registryhttp"
	"dependency-checker/types/config"
	"dependency-checker/types/nugetindex"
	"dependency-checker/types/pypiproject"
	"dependency-checker/types/scanreport"
)

// ErrNoPackageName is the reason reported when the name is empty or N/A.
var ErrNoPackageName = errors.New("no package name")

type Status int

const (
	// NotFound means the source answered but had no usable version; the next
	// strategy is tried.
	NotFound Status = iota
	// Found carries a version.
	Found
	// Failed means the request itself failed (timeout, connection, DNS).
	// The chain stops.
	Failed
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Failed:
		return "failed"
	default:
		return "not found"
	}
}

type Result struct {
	Source  string
	Status  Status
	Version string
	Reason  error
}

type Strategy interface {
	Name() string
	Lookup(ctx context.Context, packageName string) Result
}

type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// New builds the NuGet then PyPI chain from the configured endpoints. Both
// strategies share one HTTP client.
func New(cfg config.Config) *Chain {
	client := registryhttp.NewClient(true)
	return NewChain(
		&NuGetStrategy{Endpoint: cfg.Config.NuGetEndpoint, Timeout: cfg.Settings.RequestTimeout, Client: client},
		&PyPIStrategy{Endpoint: cfg.Config.PyPIEndpoint, Timeout: cfg.Settings.RequestTimeout, Client: client},
	)
}

// Resolve returns the first Found result. A Failed result ends the chain
// immediately and is returned as is.
func (c *Chain) Resolve(ctx context.Context, packageName string) Result {
	if packageName == "" || packageName == scanreport.NotAvailable {
		return Result{Status: NotFound, Reason: ErrNoPackageName}
	}

	last := Result{Status: NotFound, Reason: errors.New("no strategies configured")}
	for _, strategy := range c.strategies {
		result := strategy.Lookup(ctx, packageName)
		result.Source = strategy.Name()
		switch result.Status {
		case Found:
			return result
		case Failed:
			return result
		}
		log.Debugf("Resolve:: %s: %s has no version (%v), trying next source", strategy.Name(), packageName, result.Reason)
		last = result
	}
	return last
}

// ResolveLatestVersion collapses Resolve to a plain string, N/A when no
// version could be determined.
func (c *Chain) ResolveLatestVersion(ctx context.Context, packageName string) string {
	result := c.Resolve(ctx, packageName)
	if result.Status != Found {
		if !errors.Is(result.Reason, ErrNoPackageName) {
			log.Debugf("ResolveLatestVersion:: %s: %s (%s: %v)", packageName, result.Status, result.Source, result.Reason)
		}
		return scanreport.NotAvailable
	}
	return result.Version
}

// NuGetStrategy reads the flat container versions index, keyed by the
// lower-cased package id.
type NuGetStrategy struct {
	Endpoint string
	// Timeout is in seconds; zero keeps the request default.
	Timeout int
	// Client is reused for every lookup; nil uses a shared default.
	Client *http.Client
}

func (s *NuGetStrategy) Name() string { return "nuget" }

func (s *NuGetStrategy) Lookup(ctx context.Context, packageName string) Result {
	requestConfig := registryhttp.DefaultRegistryRequestConfig()
	requestConfig.URL = fmt.Sprintf("%s/%s/index.json", strings.TrimRight(s.Endpoint, "/"), url.PathEscape(strings.ToLower(packageName)))
	if s.Timeout > 0 {
		requestConfig.Timeout = s.Timeout
	}

	var index nugetindex.VersionsIndex
	if result, ok := fetchJSON(ctx, s.Client, requestConfig, &index); !ok {
		return result
	}
	latest, ok := index.Latest()
	if !ok {
		return Result{Status: NotFound, Reason: errors.New("empty versions list")}
	}
	return Result{Status: Found, Version: latest}
}

// PyPIStrategy reads the project JSON document, keyed by the exact-case name.
type PyPIStrategy struct {
	Endpoint string
	// Timeout is in seconds; zero keeps the request default.
	Timeout int
	// Client is reused for every lookup; nil uses a shared default.
	Client *http.Client
}

func (s *PyPIStrategy) Name() string { return "pypi" }

func (s *PyPIStrategy) Lookup(ctx context.Context, packageName string) Result {
	requestConfig := registryhttp.DefaultRegistryRequestConfig()
	requestConfig.URL = fmt.Sprintf("%s/%s/json", strings.TrimRight(s.Endpoint, "/"), url.PathEscape(packageName))
	if s.Timeout > 0 {
		requestConfig.Timeout = s.Timeout
	}

	var project pypiproject.Project
	if result, ok := fetchJSON(ctx, s.Client, requestConfig, &project); !ok {
		return result
	}
	if project.Info.Version == nil {
		return Result{Status: NotFound, Reason: errors.New("info.version missing")}
	}
	return Result{Status: Found, Version: *project.Info.Version}
}

// fetchJSON decodes a 200 response into target. When ok is false the
// returned Result explains why.
func fetchJSON(ctx context.Context, client *http.Client, requestConfig registryhttp.RegistryRequestConfig, target interface{}) (Result, bool) {
	resp, err := registryhttp.RegistryRequest(ctx, client, requestConfig)
	if err != nil {
		return Result{Status: Failed, Reason: err}, false
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return Result{Status: NotFound, Reason: fmt.Errorf("HTTP status %d", resp.StatusCode)}, false
	}
	if err := registryhttp.ResponseBodyToJson(resp, target); err != nil {
		if errors.Is(err, registryhttp.ErrMalformedBody) {
			return Result{Status: NotFound, Reason: err}, false
		}
		return Result{Status: Failed, Reason: err}, false
	}
	return Result{}, true
}
