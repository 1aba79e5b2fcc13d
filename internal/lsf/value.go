package lsf

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindFlag is an option given without an argument, e.g. -K.
	KindFlag Kind = iota + 1
	// KindNumber is an option with a numeric argument, emitted unquoted.
	KindNumber
	// KindText is an option with a string argument, quoted when the shell
	// would otherwise misread it.
	KindText
)

// Value is the argument of a single bsub option. For numbers parsed from
// text, text holds the source so it is emitted exactly as given.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Flag returns a Value for an option without an argument.
func Flag() Value {
	return Value{kind: KindFlag}
}

// Number returns a numeric Value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Int returns a numeric Value from an integer.
func Int(n int) Value {
	return Number(float64(n))
}

// Text returns a string Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind {
	return v.kind
}

// String returns the argument as it appears on the command line, quoted if
// needed. Flags render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		if v.text != "" {
			return v.text
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return quote(v.text)
	default:
		return ""
	}
}

// quote wraps s in double quotes when it contains '[' or '=' and is not
// already quoted. Nothing else is escaped.
func quote(s string) string {
	if s == "" {
		return `""`
	}
	if s[0] == '\'' || s[0] == '"' {
		return s
	}
	if strings.ContainsAny(s, "[=") {
		return `"` + s + `"`
	}
	return s
}

var numberPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// ParseValue interprets a command-line argument: numbers become KindNumber,
// everything else KindText. Numbers keep their original spelling, so "007"
// stays "007".
func ParseValue(s string) Value {
	if numberPattern.MatchString(s) {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return Value{kind: KindNumber, num: n, text: s}
		}
	}
	return Text(s)
}

// Float returns the numeric value of v and whether v is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// ValueOf converts a decoded configuration value into a Value. nil and true
// become flags; false is rejected since an absent option is expressed by
// omitting it.
func ValueOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Flag(), nil
	case bool:
		if v {
			return Flag(), nil
		}
		return Value{}, fmt.Errorf("false is not a valid option value")
	case int:
		return Int(v), nil
	case int64:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	case string:
		return Text(v), nil
	default:
		return Value{}, fmt.Errorf("unsupported option value %v (%T)", raw, raw)
	}
}

// Options maps bsub option names (without the dash) to their values.
type Options map[string]Value

// OptionsFrom converts a decoded configuration map into Options.
func OptionsFrom(raw map[string]any) (Options, error) {
	opts := make(Options, len(raw))
	for k, v := range raw {
		val, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", k, err)
		}
		opts[k] = val
	}
	return opts, nil
}

// Clone returns a copy of o. The copy is never nil.
func (o Options) Clone() Options {
	c := make(Options, len(o))
	maps.Copy(c, o)
	return c
}

// Merge returns a copy of o with every entry of other applied over it.
func (o Options) Merge(other Options) Options {
	c := o.Clone()
	maps.Copy(c, other)
	return c
}

// FlagString renders the options as "-k v" pairs separated by spaces. Every
// option uses a single dash regardless of name length. Keys are sorted so the
// output is stable.
func (o Options) FlagString() string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(o)) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('-')
		b.WriteString(k)
		if v := o[k]; v.kind == KindNumber || v.kind == KindText {
			b.WriteByte(' ')
			b.WriteString(v.String())
		}
	}
	return b.String()
}
