package values

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Atomic is a single XDM atomic value. Concrete representations are kept
// close to Go's own numeric and time types rather than boxed strings, the
// way the reference design's numDatum wraps a float64 and litDatum wraps a string
// (xpath/datum.go); the difference here is a wider type lattice, since
// this implementation is a general-purpose XPath engine rather than a
// YANG `must`/`when` evaluator.
type Atomic struct {
	Type SchemaType

	str string   // String, UntypedAtomic, AnyURI, QName, HexBinary, Base64Binary lexical/local form
	qn  QNameVal // QName only

	boolVal bool

	// Numeric: Integer uses big.Int and Decimal big.Rat for exact arithmetic; Double/Float
	// use float64/float32. Exactly one of these is meaningful per Type.
	intVal *big.Int
	decVal *big.Rat
	dblVal float64
	fltVal float32

	// Temporal.
	timeVal    time.Time
	hasTZ      bool
	durVal     Duration
}

// QNameVal is a resolved qualified name atomic value.
type QNameVal struct {
	Space  string
	Local  string
	Prefix string
}

// Duration is a signed (months, seconds) duration, matching the XML
// Schema duration data model (separate year/month and day/time
// components that are not mutually convertible).
type Duration struct {
	Months  int64
	Seconds *big.Rat // may include fractional seconds
	Neg     bool
}

func NewString(s string) Atomic          { return Atomic{Type: TString, str: s} }
func NewUntypedAtomic(s string) Atomic    { return Atomic{Type: TUntypedAtomic, str: s} }
func NewBoolean(b bool) Atomic            { return Atomic{Type: TBoolean, boolVal: b} }
func NewAnyURI(s string) Atomic           { return Atomic{Type: TAnyURI, str: s} }
func NewHexBinary(s string) Atomic        { return Atomic{Type: THexBinary, str: strings.ToUpper(s)} }
func NewBase64Binary(s string) Atomic     { return Atomic{Type: TBase64Binary, str: s} }
func NewQName(q QNameVal) Atomic          { return Atomic{Type: TQName, qn: q} }

func NewInteger(i int64) Atomic {
	return Atomic{Type: TInteger, intVal: big.NewInt(i)}
}

func NewIntegerFromBigInt(i *big.Int) Atomic {
	return Atomic{Type: TInteger, intVal: new(big.Int).Set(i)}
}

func NewDecimal(r *big.Rat) Atomic {
	return Atomic{Type: TDecimal, decVal: new(big.Rat).Set(r)}
}

func NewDouble(f float64) Atomic { return Atomic{Type: TDouble, dblVal: f} }
func NewFloat(f float32) Atomic  { return Atomic{Type: TFloat, fltVal: f} }

func NewDateTime(t time.Time, hasTZ bool) Atomic {
	return Atomic{Type: TDateTime, timeVal: t, hasTZ: hasTZ}
}

func NewDate(t time.Time, hasTZ bool) Atomic {
	return Atomic{Type: TDate, timeVal: t, hasTZ: hasTZ}
}

func NewTime(t time.Time, hasTZ bool) Atomic {
	return Atomic{Type: TTime, timeVal: t, hasTZ: hasTZ}
}

func NewDuration(t SchemaType, d Duration) Atomic {
	return Atomic{Type: t, durVal: d}
}

// String returns a value's canonical lexical representation, used both
// for xs:string casting and for string-value extraction.
func (a Atomic) String() string {
	switch a.Type {
	case TString, TUntypedAtomic, TAnyURI, THexBinary, TBase64Binary:
		return a.str
	case TQName:
		if a.qn.Prefix != "" {
			return a.qn.Prefix + ":" + a.qn.Local
		}
		return a.qn.Local
	case TBoolean:
		if a.boolVal {
			return "true"
		}
		return "false"
	case TInteger:
		return a.intVal.String()
	case TDecimal:
		return formatDecimal(a.decVal)
	case TDouble:
		return formatDouble(a.dblVal)
	case TFloat:
		return formatDouble(float64(a.fltVal))
	case TDate:
		return a.formatTemporal("2006-01-02")
	case TTime:
		return a.formatTemporal("15:04:05.999999999")
	case TDateTime:
		return a.formatTemporal("2006-01-02T15:04:05.999999999")
	case TDuration, TYearMonthDuration, TDayTimeDuration:
		return formatDuration(a.Type, a.durVal)
	default:
		return ""
	}
}

func (a Atomic) formatTemporal(layout string) string {
	s := a.timeVal.Format(layout)
	if a.hasTZ {
		if a.timeVal.Location() == time.UTC {
			s += "Z"
		} else {
			s += a.timeVal.Format("-07:00")
		}
	}
	return s
}

func formatDouble(f float64) string {
	if f != f {
		return "NaN"
	}
	if f > 1e300*10 {
		return "INF"
	}
	if f < -1e300*10 {
		return "-INF"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatDecimal(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.FloatString(18)
}

func formatDuration(t SchemaType, d Duration) string {
	var b strings.Builder
	if d.Neg {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if t != TDayTimeDuration {
		y, m := d.Months/12, d.Months%12
		if y != 0 {
			fmt.Fprintf(&b, "%dY", y)
		}
		if m != 0 {
			fmt.Fprintf(&b, "%dM", m)
		}
	}
	if t != TYearMonthDuration {
		secs := new(big.Rat)
		if d.Seconds != nil {
			secs.Set(d.Seconds)
		}
		totalSec, _ := secs.Float64()
		days := int64(totalSec) / 86400
		rem := totalSec - float64(days*86400)
		hours := int64(rem) / 3600
		rem -= float64(hours * 3600)
		mins := int64(rem) / 60
		rem -= float64(mins * 60)
		if days != 0 {
			fmt.Fprintf(&b, "%dD", days)
		}
		if hours != 0 || mins != 0 || rem != 0 {
			b.WriteByte('T')
			if hours != 0 {
				fmt.Fprintf(&b, "%dH", hours)
			}
			if mins != 0 {
				fmt.Fprintf(&b, "%dM", mins)
			}
			if rem != 0 {
				fmt.Fprintf(&b, "%gS", rem)
			}
		}
	}
	if b.Len() == 1 || (b.Len() == 2 && d.Neg) {
		b.WriteString("T0S")
	}
	return b.String()
}

// AsBigRat returns the numeric value as an exact rational for Integer and
// Decimal, or an approximation for Double/Float; ok is false for
// non-numeric types.
func (a Atomic) AsBigRat() (r *big.Rat, ok bool) {
	switch a.Type {
	case TInteger:
		return new(big.Rat).SetInt(a.intVal), true
	case TDecimal:
		return new(big.Rat).Set(a.decVal), true
	case TDouble:
		return new(big.Rat).SetFloat64(a.dblVal), a.dblVal == a.dblVal
	case TFloat:
		return new(big.Rat).SetFloat64(float64(a.fltVal)), true
	default:
		return nil, false
	}
}

func (a Atomic) AsFloat64() (float64, bool) {
	switch a.Type {
	case TInteger:
		f := new(big.Float).SetInt(a.intVal)
		v, _ := f.Float64()
		return v, true
	case TDecimal:
		v, _ := a.decVal.Float64()
		return v, true
	case TDouble:
		return a.dblVal, true
	case TFloat:
		return float64(a.fltVal), true
	default:
		return 0, false
	}
}

func (a Atomic) AsBool() (bool, bool) {
	if a.Type != TBoolean {
		return false, false
	}
	return a.boolVal, true
}

func (a Atomic) AsQName() (QNameVal, bool) {
	if a.Type != TQName {
		return QNameVal{}, false
	}
	return a.qn, true
}

func (a Atomic) AsTime() (time.Time, bool, bool) {
	switch a.Type {
	case TDate, TTime, TDateTime:
		return a.timeVal, a.hasTZ, true
	default:
		return time.Time{}, false, false
	}
}

func (a Atomic) AsDuration() (Duration, bool) {
	switch a.Type {
	case TDuration, TYearMonthDuration, TDayTimeDuration:
		return a.durVal, true
	default:
		return Duration{}, false
	}
}

func (a Atomic) AsBigInt() (*big.Int, bool) {
	if a.Type != TInteger {
		return nil, false
	}
	return a.intVal, true
}
