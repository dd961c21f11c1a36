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

package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-authflow/pkg/bridge"
	"github.com/jeremyhahn/go-authflow/pkg/flow"
	"github.com/jeremyhahn/go-authflow/pkg/logging"
	"github.com/jeremyhahn/go-authflow/pkg/metrics"
	"github.com/jeremyhahn/go-authflow/pkg/session"
	"github.com/jeremyhahn/go-authflow/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var demoLoginID string

func init() {
	demoCmd.Flags().StringVar(&demoLoginID, "login-id", "alice@example.com",
		"login id the scripted web surface signs in with")
}

// demoCmd runs a complete flow against a scripted web surface: the surface
// establishes a JWT-backed session and finishes the flow, and the command
// prints every bridge reply and the final outcome.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted authentication flow",
	Long: `Run a complete authentication flow against a built-in scripted web
surface. The surface creates a session with a freshly signed JWT and
finishes the flow, exercising the bridge, the event bus, the session
provider and login storage end to end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context())
	},
}

// consoleSurface prints every callback the engine delivers.
type consoleSurface struct{}

func (s *consoleSurface) InvokeCallback(callbackPath, result string) {
	fmt.Printf("  reply -> %s(%s)\n", callbackPath, result)
}

func (s *consoleSurface) Close() error {
	fmt.Println("  surface closed")
	return nil
}

func runDemo(ctx context.Context) error {
	cfg := getConfig()
	logger := logging.NewLogger(cfg.DebugEnabled())

	sessions, err := session.NewJWTProvider(&session.JWTProviderConfig{
		Secret:   []byte(cfg.Session.JWTSecret),
		Issuer:   cfg.Session.Issuer,
		Audience: cfg.Session.Audience,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	store := storage.NewMemoryLoginStore()
	engine := flow.NewEngine(flow.Options{
		Providers:      &flow.Providers{Session: sessions},
		Store:          store,
		AllowedOrigins: cfg.Origins,
		Logger:         logger,
		Metrics:        metrics.New(prometheus.NewRegistry()),
	})

	handle, err := engine.Start(ctx, &consoleSurface{})
	if err != nil {
		return err
	}

	fmt.Printf("capabilities: %s\n", handle.Bridge().Capabilities())

	token, err := signDemoToken(cfg.Session.JWTSecret, cfg.Session.Issuer, cfg.Session.Audience)
	if err != nil {
		return err
	}

	origin := cfg.Origins[0]
	script := []struct {
		action string
		params string
	}{
		{"session_create", `{"session":{"token":` + strconv.Quote(token) + `},` +
			`"metadata":{"loginId":` + strconv.Quote(demoLoginID) + `,` +
			`"authToken":` + strconv.Quote(token) + `,"authType":"biometrics"}}`},
		{"onFinish", `{"loginId":` + strconv.Quote(demoLoginID) + `,` +
			`"source":"login","authType":"biometrics","authToken":` + strconv.Quote(token) + `}`},
	}

	for i, step := range script {
		fmt.Printf("web surface -> FLOW:%s\n", step.action)
		handle.Bridge().HandleMessage(bridge.Message{
			Data: `{"namespace":"FLOW","action":` + strconv.Quote(step.action) + `,` +
				`"callbackPath":"window.__cb[` + strconv.Itoa(i) + `]",` +
				`"params":` + strconv.Quote(step.params) + `}`,
			SourceOrigin: origin,
			MainFrame:    true,
		})
	}

	resultCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	outcome, err := handle.Result(resultCtx)
	if err != nil {
		return err
	}

	fmt.Printf("outcome: %s\n", outcome.Kind)
	if outcome.Login != nil {
		fmt.Printf("  login id:    %s\n", outcome.Login.LoginID)
		fmt.Printf("  auth method: %s\n", outcome.Login.AuthMethod)
	}

	record, err := store.LastLogin(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("last login stored: %s (%s)\n", record.LoginID, record.AuthMethod)
	return nil
}

func signDemoToken(secret, issuer, audience string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": issuer,
		"aud": audience,
		"sub": demoLoginID,
		"iat": now.Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
