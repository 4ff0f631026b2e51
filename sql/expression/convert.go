package expression

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(x)
	case decimal.Decimal:
		return x.IntPart()
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("expression: cannot coerce %T to int64", v))
	}
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		panic(fmt.Sprintf("expression: cannot coerce %T to float64", v))
	}
}

func toStringFallback(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

func toDecimal(v interface{}) decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case int64:
		return decimal.NewFromInt(x)
	case float64:
		return decimal.NewFromFloat(x)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		panic(fmt.Sprintf("expression: cannot coerce %T to decimal", v))
	}
}
