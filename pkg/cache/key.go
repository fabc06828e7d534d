package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key derives a stable cache key from the query text, the tier
// configuration it will run under, and any extra parameters that change the
// answer (model, temperature, thresholds). Parameter order does not affect
// the key.
func Key(query, tierID string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteByte(0)
	b.WriteString(tierID)

	if len(params) > 0 {
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "\x00%s=%s", name, params[name])
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
