package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// coerceScore 数字或数字字符串转成 [0,100] 的整数，其他值记为0
func coerceScore(r gjson.Result) int {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Float()
	case gjson.String:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(r.Str), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		v = f
	default:
		return 0
	}
	if math.IsNaN(v) {
		return 0
	}
	return clampScore(int(math.Round(math.Max(math.Min(v, 100), 0))))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
