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

package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-authflow/pkg/codec"
	"github.com/jeremyhahn/go-authflow/pkg/storage"
	"github.com/jeremyhahn/go-authflow/pkg/types"
)

const (
	storageNamespace = "STORAGE"

	actionSetLastUser = "setLastUser"
	actionGetLastUser = "getLastUser"

	storageHandlerName = "StorageNamespace"
)

// StorageNamespace persists the last signed-in user so the web surface can
// pre-fill the next sign-in.
type StorageNamespace struct {
	store storage.LoginStore
}

// NewStorageNamespace creates the STORAGE namespace handler.
func NewStorageNamespace(store storage.LoginStore) *StorageNamespace {
	return &StorageNamespace{store: store}
}

// Name implements Namespace.
func (n *StorageNamespace) Name() string { return storageNamespace }

// Actions implements Namespace.
func (n *StorageNamespace) Actions() []string {
	return []string{actionSetLastUser, actionGetLastUser}
}

// Handle implements Namespace.
func (n *StorageNamespace) Handle(conn *Conn, action, params, metadata string) {
	var err error
	switch {
	case strings.EqualFold(action, actionSetLastUser):
		err = n.setLastUser(conn, params)
	case strings.EqualFold(action, actionGetLastUser):
		err = n.getLastUser(conn)
	default:
		err = NewError("bridge.storage",
			fmt.Errorf("%w: %q", ErrUnsupportedAction, action))
	}
	if err != nil {
		conn.Fail(storageHandlerName, err)
	}
}

func (n *StorageNamespace) setLastUser(conn *Conn, params string) error {
	if strings.TrimSpace(params) == "" {
		return NewError("bridge.storage.setLastUser", ErrMissingParams)
	}

	loginID, err := codec.RequiredString(params, "loginId")
	if err != nil {
		return err
	}
	method, _ := types.ParseAuthMethod(codec.OptionalString(params, "authMethod"))

	record := storage.LoginRecord{LoginID: loginID, AuthMethod: method}
	if err := n.store.SaveLogin(conn.Context(), record); err != nil {
		return NewError("bridge.storage.setLastUser", err)
	}
	conn.Succeed("{}")
	return nil
}

func (n *StorageNamespace) getLastUser(conn *Conn) error {
	record, err := n.store.LastLogin(conn.Context())
	if err != nil {
		if errors.Is(err, storage.ErrLoginNotFound) {
			conn.Succeed("null")
			return nil
		}
		return NewError("bridge.storage.getLastUser", err)
	}

	reply := map[string]string{"loginId": record.LoginID}
	if record.AuthMethod.Valid() {
		reply["authMethod"] = record.AuthMethod.String()
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return NewError("bridge.storage.getLastUser", err)
	}
	conn.Succeed(string(out))
	return nil
}
