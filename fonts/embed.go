package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFamily 是内置字体的家族名，排版找不到字体时回退到它。
const DefaultFamily = "Go"

// builtin 以文件名索引内置字体。
var builtin = map[string][]byte{
	"Go-Regular.ttf":     goregular.TTF,
	"Go-Bold.ttf":        gobold.TTF,
	"Go-Italic.ttf":      goitalic.TTF,
	"Go-BoldItalic.ttf":  gobolditalic.TTF,
	"GoMono-Regular.ttf": gomono.TTF,
	"GoMono-Bold.ttf":    gomonobold.TTF,
}

// Face 是一份内置字体文件。
type Face struct {
	Name string
	Data []byte
}

// Load 返回内置字体的字节数据，name 可写为 "embed:Go-Regular.ttf" 或直接 "Go-Regular.ttf"。
func Load(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "embed:")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("内置字体 %s 不存在", name)
	}
	return data, nil
}

// All 按文件名顺序返回全部内置字体。
func All() []Face {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Face, 0, len(names))
	for _, name := range names {
		out = append(out, Face{Name: name, Data: builtin[name]})
	}
	return out
}
