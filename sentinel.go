package soep

import (
	"regexp"
)

// sentinelLabel matches labels of negative codes, like "[-1] keine Angabe".
var sentinelLabel = regexp.MustCompile(`^\[-\d\]\s.+`)

// Codec converts raw coded survey columns into cleaned, typed columns.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	cfg Config
}

// NewCodec returns a Codec using the passed settings.
func NewCodec(cfg Config) *Codec {
	return &Codec{cfg: cfg}
}

var defaultCodec = NewCodec(DefaultConfig())

// IsSentinel returns whether the value is a coded non-answer, using the default settings.
func IsSentinel(v any) bool {
	return defaultCodec.IsSentinel(v)
}

// StripSentinels marks all sentinel values as missing, using the default settings.
func StripSentinels(c *Column) *Column {
	return defaultCodec.StripSentinels(c)
}

// IsSentinel returns whether the value is a number inside the sentinel band, or a label whose bracketed code is
// negative.
func (cd *Codec) IsSentinel(v any) bool {
	switch vv := v.(type) {
	case nil, bool:
		return false
	case string:
		return sentinelLabel.MatchString(vv)
	default:
		i, ok := toInt64(v)
		if !ok {
			return false
		}
		return i >= cd.cfg.SentinelMin && i <= cd.cfg.SentinelMax
	}
}

// StripSentinels returns the column with every sentinel value marked as missing. Other values are not changed,
// so applying it twice gives the same result as applying it once.
// The predicate is evaluated once per distinct value.
func (cd *Codec) StripSentinels(c *Column) *Column {
	switch c.data.(type) {
	case []bool:
		return c
	case []uint8, []uint16, []uint32, []uint64:
		return c
	}

	var missing []bool
	cache := map[any]bool{}
	for i := 0; i < c.length; i++ {
		if c.IsMissing(i) {
			continue
		}
		v := c.Value(i)
		key := normalizeValue(v)
		isSentinel, ok := cache[key]
		if !ok {
			isSentinel = cd.IsSentinel(v)
			cache[key] = isSentinel
		}
		if isSentinel {
			if missing == nil {
				missing = make([]bool, c.length)
				if c.missing != nil {
					copy(missing, c.missing)
				}
			}
			missing[i] = true
		}
	}
	if missing == nil {
		return c
	}
	return c.withMissing(missing)
}
