// Package export renders stored pulses as standalone SVG charts.
package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/krotov/internal/pulse"
)

// Palette cycles over controls in name order.
var Palette = []string{"#00d7ff", "#ff5f87", "#87ff5f", "#ffaf00", "#af87ff"}

type Point struct{ X, Y float64 }

type bounds struct{ minX, maxX, minY, maxY float64 }

func (b bounds) project(p Point, width, height int) (float64, float64) {
	x := (p.X - b.minX) / (b.maxX - b.minX) * float64(width)
	y := float64(height) - (p.Y-b.minY)/(b.maxY-b.minY)*float64(height)
	return x, y
}

func boundsOf(series ...[]Point) bounds {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, pts := range series {
		for _, p := range pts {
			b.minX = math.Min(b.minX, p.X)
			b.maxX = math.Max(b.maxX, p.X)
			b.minY = math.Min(b.minY, p.Y)
			b.maxY = math.Max(b.maxY, p.Y)
		}
	}

	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	if b.maxX == b.minX {
		b.maxX = b.minX + rangeX
	}
	return b
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func path(sb *strings.Builder, pts []Point, b bounds, width, height int, stroke string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i, p := range pts {
		x, y := b.project(p, width, height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

// SeriesToSVG draws one polyline. It returns "" for fewer than two points.
func SeriesToSVG(points []Point, width, height int, stroke string) string {
	if len(points) < 2 {
		return ""
	}
	var sb strings.Builder
	header(&sb, width, height)
	path(&sb, points, boundsOf(points), width, height, stroke)
	sb.WriteString("</svg>")
	return sb.String()
}

// PulsesToSVG draws every control of table against times on shared axes,
// with a zero line and a legend.
func PulsesToSVG(times []float64, table pulse.Table, width, height int) string {
	if len(times) < 2 || len(table) == 0 {
		return ""
	}

	names := table.Names()
	series := make([][]Point, 0, len(names))
	for _, name := range names {
		values := table[name]
		pts := make([]Point, 0, len(values))
		for i, v := range values {
			if i < len(times) {
				pts = append(pts, Point{times[i], v})
			}
		}
		series = append(series, pts)
	}
	b := boundsOf(append(series, []Point{{times[0], 0}})...)

	var sb strings.Builder
	header(&sb, width, height)

	_, zy := b.project(Point{0, 0}, width, height)
	fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444444" stroke-dasharray="4 4"/>
`, zy, width, zy)

	for i, pts := range series {
		if len(pts) < 2 {
			continue
		}
		path(&sb, pts, b, width, height, Palette[i%len(Palette)])
	}
	for i, name := range names {
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+14*i, Palette[i%len(Palette)], name)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteFile writes svg to path.
func WriteFile(path, svg string) error {
	if svg == "" {
		return fmt.Errorf("export: nothing to draw")
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
