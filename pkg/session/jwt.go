// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authflow.
//
// go-authflow is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package session provides ready-made flow providers for common host
// session backends.
package session

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-authflow/pkg/flow"
	"github.com/jeremyhahn/go-authflow/pkg/logging"
	"github.com/jeremyhahn/go-authflow/pkg/types"
	"github.com/tidwall/gjson"
)

// JWTProviderConfig contains configuration for the JWT session provider.
type JWTProviderConfig struct {
	// Secret is the HMAC signing secret (required).
	Secret []byte

	// Issuer is the expected iss claim (optional).
	Issuer string

	// Audience is the expected aud claim (optional).
	Audience string

	// Logger defaults to the package default logger.
	Logger *logging.Logger
}

// JWTProvider is a flow.SessionProvider that accepts a session payload
// carrying an HS256 JWT and establishes the session by validating it. The
// token travels in the payload's "token" field, falling back to the flow
// auth token.
type JWTProvider struct {
	parser *jwt.Parser
	secret []byte
	logger *logging.Logger
}

// NewJWTProvider creates a JWT session provider.
func NewJWTProvider(config *JWTProviderConfig) (*JWTProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &JWTProvider{
		parser: jwt.NewParser(opts...),
		secret: config.Secret,
		logger: logger,
	}, nil
}

// Create implements flow.SessionProvider. Validation failures become failed
// auth results, never provider errors: a bad token is a normal outcome of a
// flow, not a backend fault.
func (p *JWTProvider) Create(ctx context.Context, loginID, rawSession, authToken string, method types.AuthMethod) (flow.AuthResult, error) {
	token := gjson.Get(rawSession, "token").String()
	if token == "" {
		token = authToken
	}
	if token == "" {
		return flow.Failed("session payload carries no token"), nil
	}

	claims := jwt.MapClaims{}
	if _, err := p.parser.ParseWithClaims(token, claims, p.keyFunc); err != nil {
		p.logger.Debugf("session token rejected for %q: %v", loginID, err)
		return flow.Failed("invalid session token"), nil
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" && sub != loginID {
		p.logger.Warnf("session token subject %q does not match login id %q", sub, loginID)
		return flow.Failed("session token subject mismatch"), nil
	}

	p.logger.Debugf("session established for %q via %s", loginID, method)
	return flow.LoggedIn(), nil
}

func (p *JWTProvider) keyFunc(token *jwt.Token) (any, error) {
	return p.secret, nil
}
