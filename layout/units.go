package layout

import (
	"strconv"
	"strings"
)

// Unit 是长度在源文件中书写时的单位。
type Unit int

const (
	UnitNone Unit = iota // 裸数字，换算时按毫米处理
	UnitMM
	UnitCM
	UnitIN
	UnitPT
)

// pt 与 mm 之间的换算常量。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}}

// UnitToString 返回单位在 DSL 中的后缀。
func UnitToString(u Unit) string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return ""
}

// Length 同时保存数值与其书写单位。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM 换算为毫米，裸数字本身即毫米。
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// ToPT 换算为磅。
func (l Length) ToPT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.ToMM() * MmToPt
}

// To 换算为 UnitMM 或 UnitPT，其他目标一律按毫米返回。
func (l Length) To(target Unit) float64 {
	if target == UnitPT {
		return l.ToPT()
	}
	return l.ToMM()
}

// ParseRawLengthStr 解析 "12pt"、"5mm" 或裸数字并保留单位，
// 无法解析时返回零值。
func ParseRawLengthStr(value string) Length {
	num := strings.ToLower(strings.TrimSpace(value))
	unit := UnitNone
	for _, s := range unitSuffixes {
		if trimmed, ok := strings.CutSuffix(num, s.suffix); ok {
			num, unit = strings.TrimSpace(trimmed), s.unit
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}
	}
	return Length{Value: f, Unit: unit}
}

// LineHeightKind 区分倍数行高与绝对行高。
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec 要么是字号的倍数（1.2x），要么是绝对长度（18pt）。
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// Resolve 按给定字号计算目标单位下的行高。
func (s LineHeightSpec) Resolve(fontSize Length, target Unit) float64 {
	switch s.Kind {
	case LineHeightAbsolute:
		return s.Len.To(target)
	default:
		factor := s.Factor
		if factor <= 0 {
			factor = defaultLineFactor
		}
		return fontSize.To(target) * factor
	}
}

// raw 返回调试 JSON 中使用的形式。
func (s LineHeightSpec) raw() RawLineHeightJSON {
	if s.Kind == LineHeightAbsolute {
		return RawLineHeightJSON{Kind: "absolute", Value: s.Len.Value, Unit: UnitToString(s.Len.Unit)}
	}
	return RawLineHeightJSON{Kind: "factor", Factor: s.Factor}
}
