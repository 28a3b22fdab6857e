// Package dataurl converts between raw binary payloads and the
// data:<mime>;base64,<payload> strings used on the client-facing surface.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const scheme = "data:"

// Parse decodes a base64 data URI into its mime type and raw payload.
func Parse(s string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(s, scheme) {
		return "", nil, errors.New("not a data URI")
	}
	meta, payload, found := strings.Cut(s[len(scheme):], ",")
	if !found {
		return "", nil, errors.New("data URI has no payload separator")
	}
	mimeType, found = strings.CutSuffix(meta, ";base64")
	if !found {
		return "", nil, errors.New("data URI is not base64-encoded")
	}
	if mimeType == "" {
		return "", nil, errors.New("data URI has no mime type")
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URI payload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("data URI payload is empty")
	}
	return mimeType, data, nil
}

// Format encodes raw bytes as a base64 data URI.
func Format(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
