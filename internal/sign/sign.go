package sign

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strings"
	"time"

	"github.com/invsync/inventory-sync-server/internal/target"
)

// TimestampFormat is the wire format for signing timestamps: UTC,
// second precision, literal trailing Z.
const TimestampFormat = "2006-01-02T15:04:05Z"

// Timestamp formats t for the x-{vendor}-date header and the signed string.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Build computes the authorization header value for one outbound request.
//
// The signed string is "{METHOD} {PATH} {TIMESTAMP}" where path is the
// percent-decoded request path without query string. The result is
// "{token}:{hexsig}" with the HMAC rendered as lowercase hex.
//
// Pure function, safe for concurrent use.
func Build(method, path, timestamp, token, secret string, alg target.Algorithm) (string, error) {
	if token == "" || secret == "" {
		return "", errors.New("signing requires both token and secret")
	}

	decoded, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}

	stringToSign := strings.ToUpper(method) + " " + decoded + " " + timestamp

	var h hash.Hash
	switch alg {
	case target.SHA256:
		h = hmac.New(sha256.New, []byte(secret))
	default:
		h = hmac.New(sha1.New, []byte(secret))
	}
	h.Write([]byte(stringToSign))

	return token + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
