package pinger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultPath = "/health-check"

type Emitter interface {
	Emit(name string, args ...interface{})
}

type Config struct {
	Interval time.Duration
	// Urls contains base URLs of the services to ping. The Path is appended to each of them
	Urls    []string
	Path    string
	Timeout time.Duration
}

// Pinger periodically requests health-check endpoints of the listed services,
// so hosting platforms that suspend idle instances keep them awake
type Pinger struct {
	Emitter
	Config
	Client *http.Client
}

func (p *Pinger) Enabled() bool {
	return p.Interval > 0 && len(p.Urls) > 0
}

// Run pings all URLs every Interval until the ctx is done. A failed ping is never retried
// within the same tick: the next attempt happens on the next tick
func (p *Pinger) Run(ctx context.Context) {
	if !p.Enabled() {
		return
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PingAll(ctx)
		}
	}
}

func (p *Pinger) PingAll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	p.Emit("pinger:before_round", len(p.Urls))
	failed := 0
	for _, baseUrl := range p.Urls {
		if ctx.Err() != nil {
			return
		}

		if err := p.Ping(ctx, baseUrl); err != nil {
			failed++
		}
	}

	p.Emit("pinger:after_round", len(p.Urls), failed)
}

func (p *Pinger) Ping(ctx context.Context, baseUrl string) error {
	url := p.healthCheckUrl(baseUrl)
	status, err := p.request(ctx, url)
	p.Emit("pinger:after_ping", url, status, err)

	return err
}

func (p *Pinger) request(ctx context.Context, url string) (int, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	request, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, err
	}

	response, err := p.client().Do(request)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()

	// Drain the body to let the connection be reused
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return response.StatusCode, &UnexpectedStatusError{Url: url, Status: response.StatusCode}
	}

	return response.StatusCode, nil
}

func (p *Pinger) healthCheckUrl(baseUrl string) string {
	path := p.Path
	if path == "" {
		path = DefaultPath
	}

	return strings.TrimSuffix(baseUrl, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (p *Pinger) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}

	return http.DefaultClient
}

type UnexpectedStatusError struct {
	Url    string
	Status int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s responded with unexpected status code %d", e.Url, e.Status)
}
