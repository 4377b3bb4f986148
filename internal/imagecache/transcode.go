package imagecache

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"path"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultQuality  = 80
	DefaultMaxWidth = 1200
	fallbackExt     = "img"
)

var knownExts = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
	".avif": "avif",
	".svg":  "svg",
}

// Transcoder 将任意支持格式的图片缩放后重新编码为 JPEG
type Transcoder struct {
	Quality  int
	MaxWidth int
}

func (t Transcoder) quality() int {
	if t.Quality <= 0 || t.Quality > 100 {
		return DefaultQuality
	}
	return t.Quality
}

// Transcode 返回编码后的字节与扩展名；无法解码时返回 error
func (t Transcoder) Transcode(data []byte) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, "", fmt.Errorf("empty image")
	}
	if t.MaxWidth > 0 && w > t.MaxWidth {
		h = h * t.MaxWidth / w
		if h < 1 {
			h = 1
		}
		w = t.MaxWidth
	}

	// JPEG 无透明通道，先铺白底
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: t.quality()}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "jpg", nil
}

// ExtFromURL 从图片 URL 路径推断扩展名，未知时返回 "img"
func ExtFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fallbackExt
	}
	if ext, ok := knownExts[strings.ToLower(path.Ext(u.Path))]; ok {
		return ext
	}
	return fallbackExt
}
