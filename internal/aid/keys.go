package aid

import (
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/racingmars/go3270"
)

// Key names an attention identifier: a key press that hands control back to
// the server.
type Key string

const (
	Enter Key = "Enter"
	PgUp  Key = "PgUp"
	PgDn  Key = "PgDn"
	Clear Key = "Clear"
	Help  Key = "Help"
	Print Key = "Print"
)

// PF returns the function key PF1..PF24.
func PF(n int) Key {
	return Key(fmt.Sprintf("PF%d", n))
}

// PA returns the program attention key PA1..PA3.
func PA(n int) Key {
	return Key(fmt.Sprintf("PA%d", n))
}

// IsRoll reports whether k moves a subfile window.
func (k Key) IsRoll() bool {
	return k == PgUp || k == PgDn
}

func (k Key) String() string {
	return string(k)
}

// Normalize maps the many spellings a page or a user may use for a key onto
// its canonical Key. Anything unrecognised becomes Enter.
func Normalize(key string) Key {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return Enter
	}

	if strings.ContainsAny(trimmed, "\n\r\t;") {
		log.Printf("Security warning: rejected suspicious aid key: %q", key)
		return Enter
	}

	upper := strings.ToUpper(trimmed)
	lower := strings.ToLower(trimmed)

	if n, ok := numbered(upper, "PF", 24); ok {
		return PF(n)
	}
	if n, ok := numbered(upper, "PA", 3); ok {
		return PA(n)
	}
	if n, ok := numbered(upper, "F", 24); ok {
		return PF(n)
	}

	switch lower {
	case "enter":
		return Enter
	case "pgup", "pageup", "page_up", "rolldown", "roll_down":
		// 5250 Roll Down shows earlier records, the same as Page Up.
		return PgUp
	case "pgdn", "pagedown", "page_down", "rollup", "roll_up":
		return PgDn
	case "clear":
		return Clear
	case "help":
		return Help
	case "print":
		return Print
	}

	return Enter
}

// numbered parses PREFIXn and PREFIX(n) with 1 <= n <= max.
func numbered(upper, prefix string, max int) (int, bool) {
	if !strings.HasPrefix(upper, prefix) {
		return 0, false
	}
	inner := strings.TrimPrefix(upper, prefix)
	if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
		inner = strings.TrimSuffix(strings.TrimPrefix(inner, "("), ")")
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}

// Order is the bit order of a capability Bitmap.
var Order = func() []Key {
	keys := []Key{Enter}
	for i := 1; i <= 24; i++ {
		keys = append(keys, PF(i))
	}
	for i := 1; i <= 3; i++ {
		keys = append(keys, PA(i))
	}
	return append(keys, Clear, Help, PgUp, PgDn, Print)
}()

// Bitmap is the server-computed set of keys the current screen accepts.
// Bit i, counted from the most significant bit of the first byte, enables
// Order[i].
type Bitmap []byte

// ParseBitmap decodes the hex form carried in the page.
func ParseBitmap(s string) (Bitmap, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("aid bitmap: %w", err)
	}
	return Bitmap(raw), nil
}

// NewBitmap builds a bitmap enabling keys.
func NewBitmap(keys ...Key) Bitmap {
	b := make(Bitmap, (len(Order)+7)/8)
	for _, k := range keys {
		if i := indexOf(k); i >= 0 {
			b[i/8] |= 0x80 >> (i % 8)
		}
	}
	return b
}

// Enabled reports whether k is enabled.
func (b Bitmap) Enabled(k Key) bool {
	i := indexOf(k)
	if i < 0 || i/8 >= len(b) {
		return false
	}
	return b[i/8]&(0x80>>(i%8)) != 0
}

// String returns the hex form.
func (b Bitmap) String() string {
	return hex.EncodeToString(b)
}

func indexOf(k Key) int {
	for i, o := range Order {
		if o == k {
			return i
		}
	}
	return -1
}

var codes = map[Key]go3270.AID{
	Enter: go3270.AIDEnter,
	Clear: go3270.AIDClear,
	PA(1): go3270.AIDPA1,
	PA(2): go3270.AIDPA2,
	PA(3): go3270.AIDPA3,
	PF(1): go3270.AIDPF1, PF(2): go3270.AIDPF2, PF(3): go3270.AIDPF3,
	PF(4): go3270.AIDPF4, PF(5): go3270.AIDPF5, PF(6): go3270.AIDPF6,
	PF(7): go3270.AIDPF7, PF(8): go3270.AIDPF8, PF(9): go3270.AIDPF9,
	PF(10): go3270.AIDPF10, PF(11): go3270.AIDPF11, PF(12): go3270.AIDPF12,
	PF(13): go3270.AIDPF13, PF(14): go3270.AIDPF14, PF(15): go3270.AIDPF15,
	PF(16): go3270.AIDPF16, PF(17): go3270.AIDPF17, PF(18): go3270.AIDPF18,
	PF(19): go3270.AIDPF19, PF(20): go3270.AIDPF20, PF(21): go3270.AIDPF21,
	PF(22): go3270.AIDPF22, PF(23): go3270.AIDPF23, PF(24): go3270.AIDPF24,
	// 3270 terminals have no roll keys; PF7/PF8 are the usual stand-ins.
	PgUp: go3270.AIDPF7,
	PgDn: go3270.AIDPF8,
}

// Code returns the 3270 AID byte for k, or AIDNone.
func Code(k Key) go3270.AID {
	if c, ok := codes[k]; ok {
		return c
	}
	return go3270.AIDNone
}

// FromCode maps a 3270 AID back to a Key. PF7 and PF8 come back as the roll
// keys.
func FromCode(c go3270.AID) (Key, bool) {
	switch c {
	case go3270.AIDPF7:
		return PgUp, true
	case go3270.AIDPF8:
		return PgDn, true
	}
	for k, v := range codes {
		if v == c {
			return k, true
		}
	}
	return "", false
}
