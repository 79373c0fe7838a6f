// Package records is the target entity collection. Rows committed by an
// import land here as JSON documents identified by a natural key.
package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// KeyKind names the document field a record's natural key came from.
type KeyKind string

const (
	KeyID             KeyKind = "id"
	KeyTrackingNumber KeyKind = "trackingNumber"
	KeySKU            KeyKind = "sku"
	KeyGenerated      KeyKind = "generated"
)

// keyPriority is the order natural keys are looked up in a document.
var keyPriority = []KeyKind{KeyID, KeyTrackingNumber, KeySKU}

// Record is one stored entity document.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	Entity     string         `json:"entity"`
	KeyKind    KeyKind        `json:"keyKind"`
	NaturalKey string         `json:"naturalKey"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// KeyFor selects the upsert key for doc: id, then trackingNumber, then sku.
// Field names match ignoring case and punctuation, so "Tracking Number"
// and "tracking_number" both count. A document without any of them gets a
// fresh UUID and is always inserted.
func KeyFor(doc map[string]any) (KeyKind, string) {
	index := make(map[string]any, len(doc))
	for k, v := range doc {
		nk := keyName(k)
		if _, seen := index[nk]; !seen || k == nk {
			index[nk] = v
		}
	}

	for _, kind := range keyPriority {
		if v, ok := index[keyName(string(kind))]; ok {
			if key := keyString(v); key != "" {
				return kind, key
			}
		}
	}
	return KeyGenerated, uuid.NewString()
}

func keyName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func keyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
