package binding

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Functions 返回模板中可用的函数。
func Functions(today TodayFunc) map[string]function.Function {
	return map[string]function.Function{
		"abs":        stdlib.AbsoluteFunc,
		"ceil":       stdlib.CeilFunc,
		"coalesce":   stdlib.CoalesceFunc,
		"floor":      stdlib.FloorFunc,
		"format":     stdlib.FormatFunc,
		"formatdate": stdlib.FormatDateFunc,
		"join":       stdlib.JoinFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"length":     stdlib.LengthFunc,
		"lookup":     stdlib.LookupFunc,
		"lower":      stdlib.LowerFunc,
		"max":        stdlib.MaxFunc,
		"min":        stdlib.MinFunc,
		"replace":    stdlib.ReplaceFunc,
		"split":      stdlib.SplitFunc,
		"substr":     stdlib.SubstrFunc,
		"title":      stdlib.TitleFunc,
		"today":      todayFunc(today),
		"trimspace":  stdlib.TrimSpaceFunc,
		"upper":      stdlib.UpperFunc,
	}
}

// todayFunc 即 today([offset])：以 RFC 3339 字符串返回编译时间，
// 可选参数为固定的 UTC 小时偏移。
func todayFunc(today TodayFunc) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{Name: "offset", Type: cty.Number},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) > 1 {
				return cty.UnknownVal(cty.String), fmt.Errorf("today takes at most one argument")
			}
			var offset *int
			if len(args) == 1 {
				var h int
				if err := gocty.FromCtyValue(args[0], &h); err != nil {
					return cty.UnknownVal(cty.String), fmt.Errorf("offset must be a whole number of hours: %w", err)
				}
				offset = &h
			}
			if today == nil {
				return cty.UnknownVal(cty.String), fmt.Errorf("the current date is unavailable")
			}
			t, ok := today(offset)
			if !ok {
				return cty.UnknownVal(cty.String), fmt.Errorf("the current date is unavailable")
			}
			return cty.StringVal(t.Format(time.RFC3339)), nil
		},
	})
}
