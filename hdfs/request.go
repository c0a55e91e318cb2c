package hdfs

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// error bodies are only kept for diagnostics
const maxErrorBody = 64 << 10

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPut:    true,
	http.MethodPost:   true,
	http.MethodDelete: true,
}

// Transport performs one logical WebHDFS call: a request to the NameNode and,
// when it answers 307, a single follow-up request to the Location it names.
// Connections are never reused between calls.
type Transport struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewTransport builds a transport from a validated config.
func NewTransport(conf *Config) *Transport {
	var client http.Client
	if conf.HTTPClient != nil {
		client = *conf.HTTPClient
	} else {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.DisableKeepAlives = true
		client.Transport = tr
	}
	if conf.Timeout > 0 {
		client.Timeout = conf.Timeout
	}
	// redirects are handled by Request, one hop only
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	t := &Transport{
		client: &client,
		logger: conf.Logger,
	}
	if t.logger == nil {
		t.logger = nopLogger()
	}
	if conf.RateLimit > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), conf.RateBurst)
	}
	return t
}

// Request issues method against http://host:port{uri} and returns the body
// of the 200 answer. A 307 is followed once with the same method; every other
// status is returned as a *StatusError.
func (t *Transport) Request(ctx context.Context, host string, port int, method, uri string) ([]byte, error) {
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	reqID := uuid.NewString()
	target := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + uri

	resp, err := t.do(ctx, reqID, method, target)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return t.readBody(method, target, resp)
	case http.StatusTemporaryRedirect:
		location := resp.Header.Get("Location")
		resp.Body.Close()

		next, err := redirectTarget(location)
		if err != nil {
			t.logger.Errorf("[%s] %s %s: %v", reqID, method, target, err)
			return nil, err
		}
		CounterClientRedirects.Inc()
		t.logger.Debugf("[%s] redirected to %s", reqID, next)

		resp, err = t.do(ctx, reqID, method, next)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, t.statusError(reqID, method, next, resp)
		}
		return t.readBody(method, next, resp)
	default:
		return nil, t.statusError(reqID, method, target, resp)
	}
}

func (t *Transport) do(ctx context.Context, reqID, method, target string) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, target, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, target, err)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		observeHop(method, 0, start)
		t.logger.Errorf("[%s] %s %s: %v", reqID, method, target, err)
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	observeHop(method, resp.StatusCode, start)
	t.logger.Debugf("[%s] %s %s -> %d", reqID, method, target, resp.StatusCode)
	return resp, nil
}

func (t *Transport) readBody(method, target string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of %s %s: %w", method, target, err)
	}
	return body, nil
}

func (t *Transport) statusError(reqID, method, target string, resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := newStatusError(method, target, resp.StatusCode, body)
	t.logger.Warnf("[%s] %v", reqID, err)
	return err
}

// redirectTarget keeps host, port, path and query of a Location header.
func redirectTarget(location string) (string, error) {
	if location == "" {
		return "", ErrBadRedirect
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrBadRedirect, location, err)
	}
	if loc.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrBadRedirect, location)
	}
	next := url.URL{
		Scheme:   loc.Scheme,
		Host:     loc.Host,
		Path:     loc.Path,
		RawPath:  loc.RawPath,
		RawQuery: loc.RawQuery,
	}
	if next.Scheme == "" {
		next.Scheme = "http"
	}
	return next.String(), nil
}
