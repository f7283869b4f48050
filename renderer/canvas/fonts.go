package canvasrenderer

import (
	"fmt"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/inkwell/fonts"
	"github.com/ByLCY/inkwell/layout"
)

const fallbackFont = "Go-Regular.ttf"

func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, err := r.fontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), canvas.FontRegular, canvas.FontNormal), nil
}

// fontFamily 为每份字体数据创建一个只含常规样式的 canvas 字体族。
// 粗细与斜体已在选字阶段决定，这里直接使用选中的字体文件。
func (r *Renderer) fontFamily(font layout.FontResource) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if len(font.Data) == 0 {
		return r.fallback()
	}
	key := fontCacheKey(font)
	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}

	family := canvas.NewFontFamily(key)
	if err := family.LoadFont(font.Data, font.Index, canvas.FontRegular); err != nil {
		r.logger.Warn("font unusable, using fallback", "font", font.Name, "key", key, "err", err)
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", font.Name, err)
		}
		r.fontFamilies[key] = fallback
		return fallback, nil
	}
	r.fontFamilies[key] = family
	return family, nil
}

// fallback 返回内置的 Go 字体，调用方需持有 fontMu。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fallbackFont)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("inkwell-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func resolveFontResource(name string, fonts map[string]layout.FontResource) layout.FontResource {
	if font, ok := fonts[name]; ok {
		return font
	}
	if font, ok := fonts[layout.DefaultFont]; ok {
		return font
	}
	return layout.FontResource{Name: name}
}

func fontCacheKey(font layout.FontResource) string {
	if font.Key != "" {
		return font.Key
	}
	return fmt.Sprintf("%s|%s|%d|%d", font.Name, font.Style, font.Index, len(font.Data))
}
