// Package remoteapi is the HTTP client for the institution's employer, insured,
// exam registration and document upload APIs.
package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"citas/config"
	deliverycontext "citas/internal/delivery/context"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/oauth2"
)

const maxErrorBody = 4 << 10

// Params holds dependencies for the remote API client
type Params struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// Client calls the remote API with a bearer token from its token source.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
}

// New builds the client from configuration.
func New(params Params) (*Client, error) {
	cfg := params.Config.RemoteAPI

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "invalid remote API base URL %q", cfg.BaseURL)
	}

	tokenSource := newTokenSource(params.Ctx, cfg)

	httpClient := oauth2.NewClient(params.Ctx, tokenSource)
	httpClient.Timeout = cfg.Timeout

	params.Logger.Info("Remote API client configured",
		slog.String("baseUrl", baseURL.String()),
		slog.Bool("clientCredentials", cfg.ClientID != ""),
	)

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		tokenSource: tokenSource,
		logger:      params.Logger,
	}, nil
}

// NewWithHTTPClient builds a client around an existing HTTP client and token source.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, tokenSource oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "invalid remote API base URL %q", baseURL)
	}

	return &Client{
		baseURL:     u,
		httpClient:  httpClient,
		tokenSource: tokenSource,
		logger:      logger,
	}, nil
}

// upstreamMessage is the error body shape returned by the API, when it returns one.
type upstreamMessage struct {
	Message string `json:"message"`
	Mensaje string `json:"mensaje"`
	Error   string `json:"error"`
}

func (m upstreamMessage) text() string {
	for _, s := range []string{m.Message, m.Mensaje, m.Error} {
		if s != "" {
			return s
		}
	}

	return ""
}

func (c *Client) resolve(path string, query url.Values) string {
	ref := &url.URL{Path: strings.TrimLeft(path, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}

	return c.baseURL.ResolveReference(ref).String()
}

// doJSON sends a request and decodes a JSON response into out. It reports found=false for 404
// and for empty bodies so lookups can treat them as "not found".
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) (found bool, err error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, query), reader)
	if err != nil {
		return false, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) (bool, error) {
	ctx := req.Context()
	logger := deliverycontext.GetLoggerOrDefault(ctx, c.logger)

	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(deliverycontext.HeaderXRequestID, requestID)
	}
	if clientID := deliverycontext.GetClientID(ctx); clientID != "" {
		req.Header.Set(deliverycontext.HeaderXClientID, clientID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "Remote API unreachable",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Any("error", err),
		)

		return false, domainerrors.ErrUpstreamUnavailable.WrapMessage(err.Error())
	}
	defer resp.Body.Close()

	logger.DebugContext(ctx, "Remote API call",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return false, domainerrors.ErrUpstreamUnavailable.WithDetails(readUpstreamMessage(resp.Body))
	case resp.StatusCode >= http.StatusBadRequest:
		return false, domainerrors.ErrUpstreamRejected.WithDetails(readUpstreamMessage(resp.Body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, domainerrors.ErrUpstreamUnavailable.WrapMessage(err.Error())
	}
	if len(bytes.TrimSpace(raw)) == 0 || out == nil {
		return len(bytes.TrimSpace(raw)) > 0, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, domainerrors.ErrUpstreamRejected.WithDetails("invalid JSON response: " + err.Error())
	}

	return true, nil
}

func readUpstreamMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var msg upstreamMessage
	if err := json.Unmarshal(raw, &msg); err == nil && msg.text() != "" {
		return msg.text()
	}

	return strings.TrimSpace(string(raw))
}

// Module provides the client as every remote collaborator interface.
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			New,
			fx.As(fx.Self()),
			fx.As(new(service.CompanyLookup)),
			fx.As(new(service.InsuredLookup)),
			fx.As(new(service.ExamRegistry)),
			fx.As(new(service.ExamReviewAPI)),
		),
		NewTokenValidator,
	),
)
