// Package snowflake does exact arithmetic on Twitter snowflake ids and converts
// between ids and wall-clock time.
//
// Ids are carried as decimal strings everywhere outside this package; inside it
// they are math/big integers so nothing is lost above 2^53.
package snowflake

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

const (
	// EpochMS is the snowflake epoch, 2010-11-04T01:42:54.657Z.
	EpochMS int64 = 1288834974657

	// SequenceBits is the width of the per-millisecond sequence.
	SequenceBits = 22

	// DefaultMaxID is the id for 2080-01-01T00:00:00Z, used as "newest possible".
	DefaultMaxID = "9153891586667446272"
)

// ErrDivisionByZero is returned by Div and Mod.
var ErrDivisionByZero = errors.New("snowflake: division by zero")

// Decimal is an immutable arbitrary-precision integer.
type Decimal struct {
	n *big.Int
}

// New builds a Decimal from a decimal string, an integer, a float (floored), or
// another Decimal.
//
// Floats above 2^53 have already lost precision before they get here; callers
// holding ids should always pass strings.
func New(v any) (Decimal, error) {
	switch x := v.(type) {
	case Decimal:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Decimal{}, fmt.Errorf("snowflake: invalid integer %q", x)
		}
		return Decimal{n: n}, nil
	case int:
		return Decimal{n: big.NewInt(int64(x))}, nil
	case int64:
		return Decimal{n: big.NewInt(x)}, nil
	case uint64:
		return Decimal{n: new(big.Int).SetUint64(x)}, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Decimal{}, fmt.Errorf("snowflake: invalid number %v", x)
		}
		n, _ := big.NewFloat(math.Floor(x)).Int(nil)
		return Decimal{n: n}, nil
	default:
		return Decimal{}, fmt.Errorf("snowflake: unsupported type %T", v)
	}
}

// MustNew is New for constants and tests.
func MustNew(v any) Decimal {
	d, err := New(v)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) big() *big.Int {
	if d.n == nil {
		return new(big.Int)
	}
	return d.n
}

func operand(v any) Decimal {
	d, err := New(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Add returns d + v. v is anything New accepts; invalid operands panic.
func (d Decimal) Add(v any) Decimal {
	return Decimal{n: new(big.Int).Add(d.big(), operand(v).big())}
}

// Sub returns d - v.
func (d Decimal) Sub(v any) Decimal {
	return Decimal{n: new(big.Int).Sub(d.big(), operand(v).big())}
}

// Mul returns d * v.
func (d Decimal) Mul(v any) Decimal {
	return Decimal{n: new(big.Int).Mul(d.big(), operand(v).big())}
}

// Div returns d / v truncated toward zero.
func (d Decimal) Div(v any) (Decimal, error) {
	o := operand(v).big()
	if o.Sign() == 0 {
		return Decimal{}, ErrDivisionByZero
	}
	return Decimal{n: new(big.Int).Quo(d.big(), o)}, nil
}

// Mod returns the remainder of d / v, with the sign of d.
func (d Decimal) Mod(v any) (Decimal, error) {
	o := operand(v).big()
	if o.Sign() == 0 {
		return Decimal{}, ErrDivisionByZero
	}
	return Decimal{n: new(big.Int).Rem(d.big(), o)}, nil
}

// Pow returns d ** v. Negative exponents yield zero.
func (d Decimal) Pow(v any) Decimal {
	e := operand(v).big()
	if e.Sign() < 0 {
		return Decimal{n: new(big.Int)}
	}
	return Decimal{n: new(big.Int).Exp(d.big(), e, nil)}
}

// Cmp compares d and o.
func (d Decimal) Cmp(o Decimal) int {
	return d.big().Cmp(o.big())
}

// Sign returns -1, 0 or 1.
func (d Decimal) Sign() int {
	return d.big().Sign()
}

// String renders d in base 10.
func (d Decimal) String() string {
	return d.big().String()
}

var (
	incPerMS = MustNew(2).Pow(SequenceBits)
)

// FromUnixSeconds returns the smallest id that could have been minted at the given
// unix time. It reports false for zero, negative, or pre-epoch input.
func FromUnixSeconds(seconds float64) (string, bool) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", false
	}
	ms := MustNew(seconds * 1000)
	if ms.Cmp(MustNew(EpochMS)) < 0 {
		return "", false
	}
	return ms.Sub(EpochMS).Mul(incPerMS).String(), true
}

// FromTime is FromUnixSeconds for a time.Time with millisecond precision.
func FromTime(t time.Time) (string, bool) {
	ms := t.UnixMilli()
	if ms <= 0 || ms < EpochMS {
		return "", false
	}
	return MustNew(ms - EpochMS).Mul(incPerMS).String(), true
}

// ToTime extracts the mint time of an id.
func ToTime(id string) (time.Time, error) {
	d, err := New(id)
	if err != nil {
		return time.Time{}, err
	}
	if d.Sign() < 0 {
		return time.Time{}, fmt.Errorf("snowflake: negative id %s", id)
	}
	ms := new(big.Int).Rsh(d.big(), SequenceBits)
	ms.Add(ms, big.NewInt(EpochMS))
	if !ms.IsInt64() {
		return time.Time{}, fmt.Errorf("snowflake: id %s out of range", id)
	}
	return time.UnixMilli(ms.Int64()).UTC(), nil
}

// Prev returns id - 1, the exclusive upper bound below an already-seen item.
func Prev(id string) (string, error) {
	d, err := New(id)
	if err != nil {
		return "", err
	}
	return d.Sub(1).String(), nil
}

// Compare orders two decimal ids. Unparseable ids sort before valid ones.
func Compare(a, b string) int {
	da, errA := New(a)
	db, errB := New(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return da.Cmp(db)
}

// IsID reports whether s is a non-empty string of ASCII digits.
func IsID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
