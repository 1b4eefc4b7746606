// Package rational implements exact fractions for note lengths.
package rational

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

var (
	// ErrUndefined is returned for operations with no defined result,
	// such as gcd(0, 0) or a zero denominator.
	ErrUndefined = errors.New("undefined operation")
	// ErrFormat is returned by Parse for text that is not a fraction.
	ErrFormat = errors.New("malformed fraction")
	// ErrOverflow is returned when a result does not fit in an int. It
	// matches ErrUndefined under errors.Is.
	ErrOverflow = fmt.Errorf("%w: integer overflow", ErrUndefined)
)

// Rational is a fraction kept in lowest terms with a positive denominator.
// The zero value is 0/1.
type Rational struct {
	num int
	den int
}

var (
	Zero = Rational{0, 1}
	One  = Rational{1, 1}
)

// New returns num/den in lowest terms.
func New(num, den int) (Rational, error) {
	if den == 0 {
		return Rational{}, fmt.Errorf("%w: %d/%d", ErrUndefined, num, den)
	}
	if den < 0 {
		num, den = -num, -den
	}
	g, err := GCD(abs(num), den)
	if err != nil {
		return Rational{}, err
	}
	return Rational{num / g, den / g}, nil
}

// MustNew is New for constants; it panics on a zero denominator.
func MustNew(num, den int) Rational {
	r, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return r
}

// Parse reads the length notation used after a note:
//
//	"/"   -> 1/2
//	"N"   -> N/1
//	"/N"  -> 1/N
//	"N/"  -> N/1
//	"N/M" -> N/M
func Parse(text string) (Rational, error) {
	switch text {
	case "":
		return Rational{}, fmt.Errorf("%w: empty", ErrFormat)
	case "/":
		return Rational{1, 2}, nil
	}
	expanded := text
	if !strings.Contains(expanded, "/") {
		expanded += "/1"
	}
	if strings.HasPrefix(expanded, "/") {
		expanded = "1" + expanded
	}
	if strings.HasSuffix(expanded, "/") {
		expanded += "1"
	}
	parts := strings.Split(expanded, "/")
	if len(parts) != 2 {
		return Rational{}, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	num, err := strconv.Atoi(parts[0])
	if err != nil {
		return Rational{}, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	den, err := strconv.Atoi(parts[1])
	if err != nil {
		return Rational{}, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	return New(num, den)
}

// Num is the numerator; it carries the sign.
func (r Rational) Num() int { return r.num }

// Den is the denominator, always positive.
func (r Rational) Den() int {
	if r.den == 0 {
		return 1
	}
	return r.den
}

// Mul returns r*o, or ErrOverflow if the result does not fit.
func (r Rational) Mul(o Rational) (Rational, error) {
	g1, err := GCD(abs(r.num), o.Den())
	if err != nil {
		return Rational{}, err
	}
	g2, err := GCD(abs(o.num), r.Den())
	if err != nil {
		return Rational{}, err
	}
	num, err := MulInt(r.num/g1, o.num/g2)
	if err != nil {
		return Rational{}, err
	}
	den, err := MulInt(r.Den()/g2, o.Den()/g1)
	if err != nil {
		return Rational{}, err
	}
	return New(num, den)
}

// Add returns r+o over the least common denominator, or ErrOverflow if
// the result does not fit.
func (r Rational) Add(o Rational) (Rational, error) {
	den, err := LCM(r.Den(), o.Den())
	if err != nil {
		return Rational{}, err
	}
	a, err := MulInt(r.num, den/r.Den())
	if err != nil {
		return Rational{}, err
	}
	b, err := MulInt(o.num, den/o.Den())
	if err != nil {
		return Rational{}, err
	}
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return Rational{}, fmt.Errorf("%w: %v + %v", ErrOverflow, r, o)
	}
	return New(sum, den)
}

func (r Rational) Neg() Rational {
	return Rational{-r.num, r.Den()}
}

func (r Rational) Sub(o Rational) (Rational, error) {
	return r.Add(o.Neg())
}

// Cmp returns -1, 0 or +1 following the sign of r - o.
func (r Rational) Cmp(o Rational) int {
	return r.rat().Cmp(o.rat())
}

func (r Rational) rat() *big.Rat {
	return big.NewRat(int64(r.num), int64(r.Den()))
}

func (r Rational) Equal(o Rational) bool { return r.Cmp(o) == 0 }

func (r Rational) Float64() float64 {
	return float64(r.num) / float64(r.Den())
}

func (r Rational) String() string {
	return strconv.Itoa(r.num) + "/" + strconv.Itoa(r.Den())
}

// GCD returns the greatest common divisor of two non-negative integers.
func GCD[T constraints.Integer](a, b T) (T, error) {
	if a == 0 && b == 0 {
		return 0, fmt.Errorf("%w: gcd(0, 0)", ErrUndefined)
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		a = -a
	}
	return a, nil
}

// LCM returns the least common multiple of a and b, or ErrOverflow if
// it does not fit in T.
func LCM[T constraints.Integer](a, b T) (T, error) {
	g, err := GCD(a, b)
	if err != nil {
		return 0, err
	}
	x, y := a/g, b
	if x < 0 {
		x = -x
	}
	if y < 0 {
		y = -y
	}
	l := x * y
	if x < 0 || y < 0 || (x != 0 && (l/x != y || l < 0)) {
		return 0, fmt.Errorf("%w: lcm(%d, %d)", ErrOverflow, a, b)
	}
	return l, nil
}

// MulInt returns a*b, or ErrOverflow if the product does not fit in an int.
func MulInt(a, b int) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt) || (b == -1 && a == math.MinInt) {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return c, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
