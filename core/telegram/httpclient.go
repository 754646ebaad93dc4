package telegram

import (
	"errors"
	"net"
	"net/http"
	"time"

	"elpbot/core/telegram/netutil"
)

// Transport timings. Header and client deadlines sit on top of the long-poll timeout,
// because getUpdates holds its response until that timeout expires.
const (
	dialTimeout      = 5 * time.Second
	keepAlive        = 30 * time.Second
	tlsTimeout       = 5 * time.Second
	idleTimeout      = 30 * time.Second
	headerSlack      = 5 * time.Second
	clientSlack      = 20 * time.Second
	transportRetries = 3
	retryStep        = 2 * time.Second
)

// BuildHTTPClient returns the client telebot uses for Bot API calls.
// Transient network failures are retried with a linear backoff.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	if longPoll <= 0 {
		longPoll = defaultLongPollTimeout
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ResponseHeaderTimeout: longPoll + headerSlack,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   longPoll + clientSlack,
		Transport: &retryTransport{next: base, retries: transportRetries, step: retryStep},
	}
}

// retryTransport repeats a request whose body can be replayed when the error is transient.
type retryTransport struct {
	next    http.RoundTripper
	retries int
	step    time.Duration
}

var errNoReplay = errors.New("telegram: request body cannot be replayed")

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	for attempt := 0; ; attempt++ {
		r, err := replay(req, attempt)
		if err != nil {
			return nil, err
		}
		resp, err := next.RoundTrip(r)
		if err == nil || attempt >= t.retries || !netutil.ShouldRetry(err) {
			return resp, err
		}
		if req.Body != nil && req.GetBody == nil {
			return nil, errors.Join(err, errNoReplay)
		}
		if wait := t.step * time.Duration(attempt+1); wait > 0 {
			if err := sleepCtx(req, wait); err != nil {
				return nil, err
			}
		}
	}
}

func replay(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 {
		return req, nil
	}
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func sleepCtx(req *http.Request, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-t.C:
		return nil
	}
}
