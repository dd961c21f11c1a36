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

package codec

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// CeremonyTimeout is the fixed client-side ceremony timeout in milliseconds.
const CeremonyTimeout = 2 * 60 * 1000

// Credential ids arrive from the server as opaque strings and are emitted
// verbatim; they are never decoded on this side.
type credentialRef struct {
	Type protocol.CredentialType `json:"type"`
	ID   string                  `json:"id"`
}

type credentialParam struct {
	Type protocol.CredentialType              `json:"type"`
	Alg  webauthncose.COSEAlgorithmIdentifier `json:"alg"`
}

type relyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ceremonyUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type authenticatorSelection struct {
	AuthenticatorAttachment protocol.AuthenticatorAttachment     `json:"authenticatorAttachment"`
	UserVerification        protocol.UserVerificationRequirement `json:"userVerification"`
	RequireResidentKey      bool                                 `json:"requireResidentKey"`
	ResidentKey             protocol.ResidentKeyRequirement      `json:"residentKey"`
}

// https://w3c.github.io/webauthn/#dictionary-makecredentialoptions
type registrationOptions struct {
	Challenge              string                        `json:"challenge"`
	RP                     relyingParty                  `json:"rp"`
	User                   ceremonyUser                  `json:"user"`
	PubKeyCredParams       []credentialParam             `json:"pubKeyCredParams"`
	Timeout                int                           `json:"timeout"`
	Attestation            protocol.ConveyancePreference `json:"attestation"`
	ExcludeCredentials     []credentialRef               `json:"excludeCredentials"`
	AuthenticatorSelection authenticatorSelection        `json:"authenticatorSelection"`
}

// https://w3c.github.io/webauthn/#dictionary-assertion-options
type assertionOptions struct {
	Challenge        string                               `json:"challenge"`
	Timeout          int                                  `json:"timeout"`
	RPID             string                               `json:"rpId"`
	UserVerification protocol.UserVerificationRequirement `json:"userVerification"`
	AllowCredentials []credentialRef                      `json:"allowCredentials"`
}

// EncodeChallenge encodes a flow context as a WebAuthn challenge:
// base64url without padding over the UTF-8 bytes.
func EncodeChallenge(context string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(context))
}

// BuildRegistrationOptions builds a credential creation options document for
// a passkey registration ceremony. Resident (discoverable) credentials are
// required so the resulting passkey is usable for username-less sign-in.
func BuildRegistrationOptions(challenge, rpID, rpName, userID, userName, userDisplayName string, credIDs []string) (string, error) {
	opts := registrationOptions{
		Challenge: EncodeChallenge(challenge),
		RP:        relyingParty{ID: rpID, Name: rpName},
		User:      ceremonyUser{ID: userID, Name: userName, DisplayName: userDisplayName},
		PubKeyCredParams: []credentialParam{
			{Type: protocol.PublicKeyCredentialType, Alg: webauthncose.AlgES256},
			{Type: protocol.PublicKeyCredentialType, Alg: webauthncose.AlgRS256},
		},
		Timeout:            CeremonyTimeout,
		Attestation:        protocol.PreferNoAttestation,
		ExcludeCredentials: credentialRefs(credIDs),
		AuthenticatorSelection: authenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			UserVerification:        protocol.VerificationRequired,
			RequireResidentKey:      true,
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
		},
	}
	out, err := json.Marshal(opts)
	if err != nil {
		return "", NewError("codec.BuildRegistrationOptions", err)
	}
	return string(out), nil
}

// BuildAssertionOptions builds a credential request options document for a
// passkey sign-in ceremony.
func BuildAssertionOptions(challenge, rpID string, credIDs []string) (string, error) {
	opts := assertionOptions{
		Challenge:        EncodeChallenge(challenge),
		Timeout:          CeremonyTimeout,
		RPID:             rpID,
		UserVerification: protocol.VerificationRequired,
		AllowCredentials: credentialRefs(credIDs),
	}
	out, err := json.Marshal(opts)
	if err != nil {
		return "", NewError("codec.BuildAssertionOptions", err)
	}
	return string(out), nil
}

// AdjustEnrollmentOptions normalizes host-supplied credential creation
// options for a device enrollment ceremony: the challenge is re-encoded as
// base64url-no-padding, a random user id is generated when absent, and
// timeout, attestation and authenticator selection fields are defaulted to
// the same values the registration builder uses.
func AdjustEnrollmentOptions(raw string) (string, error) {
	var opts map[string]any
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return "", NewError("codec.AdjustEnrollmentOptions",
			fmt.Errorf("%w: %v", ErrInvalidOptions, err))
	}

	challenge, ok := opts["challenge"].(string)
	if !ok || strings.TrimSpace(challenge) == "" {
		return "", NewError("codec.AdjustEnrollmentOptions",
			fmt.Errorf("%w: challenge", ErrMissingField))
	}
	opts["challenge"] = EncodeChallenge(challenge)

	user, ok := opts["user"].(map[string]any)
	if !ok {
		return "", NewError("codec.AdjustEnrollmentOptions",
			fmt.Errorf("%w: user", ErrMissingField))
	}
	if _, present := user["id"]; !present {
		id, err := RandomUserID()
		if err != nil {
			return "", NewError("codec.AdjustEnrollmentOptions", err)
		}
		user["id"] = id
	}

	if _, present := opts["timeout"]; !present {
		opts["timeout"] = CeremonyTimeout
	}
	if _, present := opts["attestation"]; !present {
		opts["attestation"] = string(protocol.PreferNoAttestation)
	}

	selection, ok := opts["authenticatorSelection"].(map[string]any)
	if !ok {
		return "", NewError("codec.AdjustEnrollmentOptions",
			fmt.Errorf("%w: authenticatorSelection", ErrMissingField))
	}
	if _, present := selection["authenticatorAttachment"]; !present {
		selection["authenticatorAttachment"] = string(protocol.Platform)
	}
	if _, present := selection["userVerification"]; !present {
		selection["userVerification"] = string(protocol.VerificationRequired)
	}
	if _, present := selection["requireResidentKey"]; !present {
		selection["requireResidentKey"] = true
	}
	if _, present := selection["residentKey"]; !present {
		selection["residentKey"] = string(protocol.ResidentKeyRequirementRequired)
	}

	out, err := json.Marshal(opts)
	if err != nil {
		return "", NewError("codec.AdjustEnrollmentOptions", err)
	}
	return string(out), nil
}

// RandomUserID generates a 32-byte random user handle encoded as
// base64url without padding.
func RandomUserID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// credentialRefs de-duplicates credential ids and drops blank entries,
// keeping first-seen order. The result is never nil so an empty list
// marshals as [].
func credentialRefs(ids []string) []credentialRef {
	refs := make([]credentialRef, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, credentialRef{Type: protocol.PublicKeyCredentialType, ID: id})
	}
	return refs
}
