package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"rentdapp/internal/config"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	clientKeyUnknown    = "unknown"

	permReadState = "read:state"
	permDispatch  = "write:actions"
	permPayment   = "write:payment"
)

var (
	errMissingKey       = errors.New("missing api key")
	errInvalidKey       = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// keyring resolves API keys to configured clients.
type keyring struct {
	header  string
	clients []config.APIClientKey
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	header := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if header == "" {
		header = apiKeyHeaderDefault
	}
	return &keyring{header: header, clients: cfg.APIKeys}
}

func (k *keyring) lookup(key string) (config.APIClientKey, error) {
	if key == "" {
		return config.APIClientKey{}, errMissingKey
	}
	for _, c := range k.clients {
		if subtle.ConstantTimeCompare([]byte(c.Key), []byte(key)) == 1 {
			return c, nil
		}
	}
	return config.APIClientKey{}, errInvalidKey
}

// permits treats an empty permission list as allow-all.
func permits(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

// HTTPAuth checks API keys and applies the per-key rate limit.
type HTTPAuth struct {
	cfg     config.APIConfig
	keys    *keyring
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg, keys: newKeyring(cfg.Auth), limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(r.Header.Get(a.keys.header))
		if a.cfg.Auth.Enabled {
			client, err := a.keys.lookup(apiKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if !permits(client, requiredPermissionHTTP(r)) {
				writeError(w, http.StatusForbidden, errPermissionDenied.Error())
				return
			}
		}

		key := apiKey
		if key == "" {
			key = remoteHost(r.RemoteAddr)
		}
		if !a.limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requiredPermissionHTTP(r *http.Request) string {
	switch {
	case r.Method == http.MethodGet:
		return permReadState
	case strings.HasPrefix(r.URL.Path, "/api/v1/payment"):
		return permPayment
	default:
		return permDispatch
	}
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// AuthInterceptor applies the same keys and limits to gRPC calls.
type AuthInterceptor struct {
	cfg     config.APIConfig
	keys    *keyring
	limiter *rateLimiter
}

func NewAuthInterceptor(cfg config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{cfg: cfg, keys: newKeyring(cfg.Auth), limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		apiKey := first(md.Get(a.keys.header))

		if a.cfg.Auth.Enabled {
			client, err := a.keys.lookup(apiKey)
			if err != nil {
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			if !permits(client, permReadState) {
				return nil, status.Error(codes.PermissionDenied, errPermissionDenied.Error())
			}
		}

		key := apiKey
		if key == "" {
			key = peerAddr(ctx)
		}
		if !a.limiter.allow(key) {
			return nil, status.Error(codes.ResourceExhausted, errRateLimited.Error())
		}
		return handler(ctx, req)
	}
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
