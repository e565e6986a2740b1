package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
)

// remoteTool is the provider's wire shape for one tool definition.
type remoteTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// schemaCache holds the fetched tool schemas with their fetch time. Refresh
// is lazy and TTL-driven; a refresh failure serves the stale value when one
// exists, so a flapping provider degrades to slightly old schemas instead of
// no tools at all.
type schemaCache struct {
	mu        sync.Mutex
	value     []openai.Tool
	names     map[string]bool
	fetchedAt time.Time
	ttl       time.Duration
}

// Proxy exposes a remote tool provider's operations (customer, product,
// price, payment-link, subscription management and the like) as dispatchable
// tools, forwarding argument bundles verbatim.
type Proxy struct {
	baseURL string
	client  *http.Client
	cache   *schemaCache
	logg    *logger.Logger
}

func NewProxy(cfg config.ToolProviderConfig, logg *logger.Logger) (*Proxy, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("tool provider url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid tool provider url: %w", err)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Proxy{
		baseURL: base,
		client:  &http.Client{Timeout: 15 * time.Second},
		cache:   &schemaCache{ttl: ttl},
		logg:    logg,
	}, nil
}

func (p *Proxy) Specs(ctx context.Context) ([]openai.Tool, error) {
	return p.cachedSpecs(ctx, false)
}

func (p *Proxy) Handles(ctx context.Context, name string) bool {
	p.cache.mu.Lock()
	known := p.cache.names[name]
	empty := p.cache.value == nil
	p.cache.mu.Unlock()

	if known {
		return true
	}
	if !empty {
		return false
	}
	// Cold cache: fetch once so routing can work at all.
	if _, err := p.cachedSpecs(ctx, false); err != nil {
		return false
	}
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	return p.cache.names[name]
}

func (p *Proxy) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	endpoint := fmt.Sprintf("%s/tools/%s", p.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(args))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building tool provider request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling tool provider")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading tool provider response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("tool provider returned %d for %s", resp.StatusCode, name)).
			WithDetails(map[string]any{"body": string(body)})
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding tool provider result")
	}
	return result, nil
}

// cachedSpecs returns the cached schemas, refreshing lazily when the TTL has
// lapsed or force is set.
func (p *Proxy) cachedSpecs(ctx context.Context, force bool) ([]openai.Tool, error) {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()

	fresh := p.cache.value != nil && time.Since(p.cache.fetchedAt) < p.cache.ttl
	if fresh && !force {
		return p.cache.value, nil
	}

	specs, names, err := p.fetchSpecs(ctx)
	if err != nil {
		if p.cache.value != nil {
			if p.logg != nil {
				p.logg.Warn(ctx, fmt.Sprintf("tool provider refresh failed, serving stale schemas: %v", err))
			}
			return p.cache.value, nil
		}
		return nil, err
	}

	p.cache.value = specs
	p.cache.names = names
	p.cache.fetchedAt = time.Now()
	return specs, nil
}

func (p *Proxy) fetchSpecs(ctx context.Context) ([]openai.Tool, map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/tools", nil)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building tool provider request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching tool schemas")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("tool provider returned %d listing tools", resp.StatusCode))
	}

	var remote []remoteTool
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding tool schemas")
	}

	specs := make([]openai.Tool, 0, len(remote))
	names := make(map[string]bool, len(remote))
	for _, rt := range remote {
		if rt.Name == "" {
			continue
		}
		specs = append(specs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        rt.Name,
				Description: rt.Description,
				Parameters:  rt.InputSchema,
			},
		})
		names[rt.Name] = true
	}
	return specs, names, nil
}
