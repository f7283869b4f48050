package layout

import "github.com/alecthomas/participle/v2/lexer"

// BuildOptions 配置布局阶段所需的依赖，例如排版后端与模板求值器。
type BuildOptions struct {
	Typesetter Typesetter
	Binder     Binder
	Images     ImageLoader
	Debug      DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	RawUnits bool // 在调试 JSON 中输出 debug.rawUnits 影子字段
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}

// Binder 对文本中的 ${...} 模板求值。求值失败时返回原文，错误由 Binder 自行记录。
type Binder interface {
	Bind(text string, pos lexer.Position) string
}

// ImageLoader 读取图片数据。pos 为引用图片的位置，相对路径据此解析。
type ImageLoader interface {
	LoadImage(src string, pos lexer.Position) ([]byte, error)
}
