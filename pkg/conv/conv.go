// Package conv 提供类型转换工具，用于把 YAML 解析结果（any）转成配置需要的标量类型。
package conv

import (
	"math"
	"strconv"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32、uint64；bool 不参与转换。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// ToInt 将 any 转为 int。
// 支持 int、int64、int32、uint64；float 仅在没有小数部分时接受（YAML 中的 "8.0"）。
func ToInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case float32:
		if float64(val) != math.Trunc(float64(val)) {
			return 0, false
		}
		return int(val), true
	default:
		return 0, false
	}
}

// ToBool 将 any 转为 bool。
// 支持 bool 以及 "true"/"false" 等 strconv.ParseBool 能识别的字符串。
func ToBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// ToString 将 any 转为 string。
// string 直接返回；整数按十进制格式化，便于 `infer_load_path: 20200101` 这种写法。
func ToString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}
