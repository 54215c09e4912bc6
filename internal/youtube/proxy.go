package youtube

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ProxyConfig holds the proxies used for outgoing YouTube requests, keyed by
// request scheme. Either may be empty.
type ProxyConfig struct {
	HTTP  string
	HTTPS string
}

func (p ProxyConfig) parse() (httpProxy, httpsProxy *url.URL, err error) {
	if p.HTTP != "" {
		if httpProxy, err = url.Parse(p.HTTP); err != nil {
			return nil, nil, fmt.Errorf("invalid http proxy: %w", err)
		}
	}
	if p.HTTPS != "" {
		if httpsProxy, err = url.Parse(p.HTTPS); err != nil {
			return nil, nil, fmt.Errorf("invalid https proxy: %w", err)
		}
	}
	return httpProxy, httpsProxy, nil
}

// NewHTTPClient returns a client routing requests through the configured proxies.
// An https request with no https proxy falls back to the http proxy and vice versa.
func NewHTTPClient(p ProxyConfig, timeout time.Duration) (*http.Client, error) {
	httpProxy, httpsProxy, err := p.parse()
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if httpProxy != nil || httpsProxy != nil {
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && httpsProxy != nil {
				return httpsProxy, nil
			}
			if httpProxy != nil {
				return httpProxy, nil
			}
			return httpsProxy, nil
		}
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// LogProxyState logs which proxies are configured with credentials redacted.
func LogProxyState(logger *slog.Logger, p ProxyConfig) {
	httpProxy, httpsProxy, err := p.parse()
	if err != nil {
		logger.Warn("proxy configuration is invalid", slog.String("error", err.Error()))
		return
	}
	if httpProxy == nil && httpsProxy == nil {
		logger.Info("no proxy configured for YouTube requests")
		return
	}
	attrs := []any{}
	if httpProxy != nil {
		attrs = append(attrs, slog.String("http", httpProxy.Redacted()))
	}
	if httpsProxy != nil {
		attrs = append(attrs, slog.String("https", httpsProxy.Redacted()))
	}
	logger.Info("proxy configured for YouTube requests", attrs...)
}
