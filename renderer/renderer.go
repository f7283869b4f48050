package renderer

import (
	"image/color"

	"github.com/ByLCY/inkwell/layout"
)

// Renderer 将布局结果输出为最终文件。PDF 一次输出整份文档，
// PNG 与 SVG 按页输出，page 从 0 开始。
type Renderer interface {
	RenderPDF(result *layout.Result) ([]byte, error)
	RenderPNG(result *layout.Result, page int, opts Raster) ([]byte, error)
	RenderSVG(result *layout.Result, page int) ([]byte, error)
}

// Raster 控制位图输出。
type Raster struct {
	PPI        float64     // 每英寸像素数
	Background color.Color // 为 nil 时背景透明
}
