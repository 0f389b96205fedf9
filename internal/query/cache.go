package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// cacheKeyFor derives a stable cache key for a Request by hashing a
// normalized representation of the query rather than the raw struct.
func cacheKeyFor(req Request) string {
	kinds := make([]string, len(req.Kinds))
	for i, k := range req.Kinds {
		kinds[i] = string(k)
	}
	sort.Strings(kinds)

	tags := append([]string(nil), req.Tags...)
	sort.Strings(tags)

	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%.3f|%.3f|%v",
		strings.ToLower(req.Text), req.ScopeID, strings.Join(kinds, ","), strings.Join(tags, ","), req.Limit,
		req.MinPriority, req.MaxPriority, req.CriticalOnly)

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
