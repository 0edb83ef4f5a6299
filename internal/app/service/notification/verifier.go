package notification

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"

	cfgpkg "github.com/stitchlab/atelier/pkg/config"
)

// ErrNoSecret means the notification secret word is not configured; nothing
// can be verified, so callers must fail closed.
var ErrNoSecret = errors.New("notification secret is not configured")

// Verifier authenticates inbound gateway notifications. The gateway hashes
// the length-prefixed, key-sorted parameter values with the shared secret
// word appended and a single MD5 round. That digest is the gateway's wire
// contract; our hardening is limited to the constant-time comparison.
type Verifier struct {
	secret string
}

func NewVerifier(cfg *cfgpkg.Config) *Verifier {
	return &Verifier{secret: cfg.Payment.NotificationSecret}
}

// Verify checks the HASH field against the recomputed digest. Missing values
// hash as empty strings.
func (v *Verifier) Verify(params map[string]string) (bool, error) {
	if v.secret == "" {
		return false, ErrNoSecret
	}
	received := strings.ToLower(params[ParamHash])
	if received == "" {
		return false, nil
	}
	expected := v.ComputeHash(params)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1, nil
}

// ComputeHash derives the notification digest for a parameter map, ignoring
// any HASH entry present.
func (v *Verifier) ComputeHash(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamHash {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		val := params[k]
		sb.WriteString(strconv.Itoa(len(val)))
		sb.WriteString(val)
	}
	sb.WriteString(v.secret)

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
