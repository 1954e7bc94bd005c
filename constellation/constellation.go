package constellation

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/arnau-ranchal/epcalculator/internal/logger"
)

// Kind selects the geometry of a generated alphabet.
type Kind int

const (
	PAM Kind = iota
	PSK
	QAM
	Custom
)

// String returns the conventional name of the kind.
func (k Kind) String() string {
	switch k {
	case PAM:
		return "PAM"
	case PSK:
		return "PSK"
	case QAM:
		return "QAM"
	case Custom:
		return "custom"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a modulation name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "PAM", "pam":
		return PAM, nil
	case "PSK", "psk":
		return PSK, nil
	case "QAM", "qam":
		return QAM, nil
	case "custom":
		return Custom, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrKind, s)
}

var (
	ErrSize = errors.New("constellation: alphabet size must be at least 2")
	ErrKind = errors.New("constellation: unknown modulation kind")
)

// Alphabet returns the m-point alphabet for the given kind, before any
// power normalisation. PAM points are equally spaced on the real axis, PSK
// points lie on the unit circle, QAM points form a square sqrt(m) x sqrt(m)
// grid. A QAM request with non-square m logs a warning and falls back to
// PAM. Custom alphabets are provided by the caller, not generated here.
func Alphabet(m int, kind Kind) ([]complex128, error) {
	if m < 2 {
		return nil, fmt.Errorf("%w: m=%d", ErrSize, m)
	}
	switch kind {
	case PAM:
		return pam(m), nil
	case PSK:
		return psk(m), nil
	case QAM:
		l := int(math.Round(math.Sqrt(float64(m))))
		if l*l != m {
			logger.Logger().Warn().
				Int("m", m).
				Msg("QAM size is not a perfect square, falling back to PAM")
			return pam(m), nil
		}
		return qam(l), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrKind, kind)
}

func pam(m int) []complex128 {
	delta := math.Sqrt(3 / (float64(m)*float64(m) - 1))
	x := make([]complex128, m)
	for k := 0; k < m; k++ {
		x[k] = complex(float64(2*k-m+1)*delta, 0)
	}
	return x
}

func psk(m int) []complex128 {
	x := make([]complex128, m)
	for k := 0; k < m; k++ {
		x[k] = cmplx.Exp(complex(0, 2*math.Pi*float64(k)/float64(m)))
	}
	return x
}

func qam(l int) []complex128 {
	delta := math.Sqrt(3 / (2 * (float64(l)*float64(l) - 1)))
	x := make([]complex128, 0, l*l)
	for i := 0; i < l; i++ {
		for j := 0; j < l; j++ {
			x = append(x, complex(float64(2*i-l+1)*delta, float64(2*j-l+1)*delta))
		}
	}
	return x
}
