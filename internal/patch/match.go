package patch

import (
	"strings"
	"unicode"
)

// Mode 匹配方式
type Mode string

const (
	ModeExact Mode = "exact"
	// ModeLine 逐行去除首尾空白后精确比较，忽略缩进变化
	ModeLine Mode = "line"
)

// NormalizeMode 规范化匹配方式，未知值按 exact 处理
func NormalizeMode(raw string) Mode {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == string(ModeLine) {
		return ModeLine
	}
	return ModeExact
}

// span 命中区间 [start, end)
type span struct {
	start int
	end   int
}

// locate 查找 needle 在 text 中第一次出现的位置
func locate(text, needle string, mode Mode) (span, bool) {
	if needle == "" {
		return span{}, false
	}
	if NormalizeMode(string(mode)) == ModeLine {
		return locateLines(text, needle)
	}
	i := strings.Index(text, needle)
	if i < 0 {
		return span{}, false
	}
	return span{start: i, end: i + len(needle)}, true
}

func contains(text, needle string, mode Mode) bool {
	_, ok := locate(text, needle, mode)
	return ok
}

type line struct {
	start int // 行首偏移
	text  string
}

func splitLines(text string) []line {
	var lines []line
	offset := 0
	for {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			lines = append(lines, line{start: offset, text: text[offset:]})
			return lines
		}
		lines = append(lines, line{start: offset, text: text[offset : offset+i]})
		offset += i + 1
	}
}

// locateLines 按行匹配：needle 的每一行与 text 中连续的行在 TrimSpace 后相等。
// 返回的区间从第一行的首个非空白字符到最后一行的末个非空白字符，保留原缩进。
func locateLines(text, needle string) (span, bool) {
	if strings.TrimSpace(needle) == "" {
		return span{}, false
	}
	var want []string
	for _, l := range strings.Split(strings.TrimSpace(needle), "\n") {
		want = append(want, strings.TrimSpace(l))
	}
	lines := splitLines(text)

	for i := 0; i+len(want) <= len(lines); i++ {
		matched := true
		for j, w := range want {
			if strings.TrimSpace(lines[i+j].text) != w {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		first := lines[i]
		last := lines[i+len(want)-1]
		start := first.start + (len(first.text) - len(strings.TrimLeftFunc(first.text, unicode.IsSpace)))
		end := last.start + len(strings.TrimRightFunc(last.text, unicode.IsSpace))
		return span{start: start, end: end}, true
	}
	return span{}, false
}
