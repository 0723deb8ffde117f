package ir

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/sdcio/xpath3/values"
)

func integerLiteral(text string) values.Atomic {
	i := new(big.Int)
	i.SetString(text, 10)
	return values.NewIntegerFromBigInt(i)
}

func decimalLiteral(text string) values.Atomic {
	r := new(big.Rat)
	r.SetString(text)
	return values.NewDecimal(r)
}

func doubleLiteral(text string) values.Atomic {
	f, _ := strconv.ParseFloat(strings.TrimSpace(text), 64)
	return values.NewDouble(f)
}
