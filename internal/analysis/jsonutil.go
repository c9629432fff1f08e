package analysis

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

var errNoJSON = errors.New("响应中没有JSON")

// stripFences 去掉BOM和markdown代码块标记
func stripFences(text string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "\uFEFF"))
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// extractBalanced 从第一个 open 开始找到匹配的 close，跳过字符串内的括号
func extractBalanced(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inStr:
			escaped = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == open:
			level++
		case c == close:
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 把字符串内部未转义的双引号改成 \"。
// 下一个非空白字符是 : , ] } 时才认为引号结束了字符串。
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
				break
			}
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j >= len(src) || src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}' {
				inStr = false
				b.WriteByte(c)
			} else {
				b.WriteString("\\\"")
			}
			escaped = false
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			escaped = false
		}
	}
	return b.String()
}

// parseDocument 从模型输出中取出第一个 JSON 值（对象或数组）。
// 直接解析失败时做一次引号修复再试。
func parseDocument(text string, open, close byte) (gjson.Result, error) {
	cleaned := stripFences(text)
	raw := extractBalanced(cleaned, open, close)
	if raw == "" {
		return gjson.Result{}, errNoJSON
	}
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "")
	}
	if json.Valid([]byte(raw)) {
		return gjson.Parse(raw), nil
	}
	fixed := sanitizeJSON(raw)
	if json.Valid([]byte(fixed)) {
		return gjson.Parse(fixed), nil
	}
	return gjson.Result{}, errors.New("JSON格式无效")
}

// parseObject 解析 JSON 对象
func parseObject(text string) (gjson.Result, error) {
	return parseDocument(text, '{', '}')
}

// stringList 把数组元素转成字符串，非数组返回空切片
func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	for _, item := range r.Array() {
		s := strings.TrimSpace(item.String())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
