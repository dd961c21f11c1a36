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

package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", GetCorrelationID(ctx))
}

func TestGetCorrelationIDMissing(t *testing.T) {
	assert.Equal(t, "", GetCorrelationID(context.Background()))
	assert.Equal(t, "", GetCorrelationID(nil))
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	require.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestGetOrGenerate(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "existing")
	assert.Equal(t, "existing", GetOrGenerate(ctx))
	assert.NotEmpty(t, GetOrGenerate(context.Background()))
}
