package assets

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/fallingobjects/systems"
)

// ErrGradient is returned for CSS gradients that cannot be parsed.
var ErrGradient = errors.New("invalid css gradient")

var namedColors = map[string]string{
	"black":  "#000000",
	"white":  "#ffffff",
	"red":    "#ff0000",
	"green":  "#008000",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"orange": "#ffa500",
	"purple": "#800080",
	"pink":   "#ffc0cb",
	"gray":   "#808080",
	"grey":   "#808080",
}

// ParseGradient parses a CSS linear-gradient (or a bare stop list) into
// ordered color stops. Missing positions follow CSS: the first stop defaults
// to 0%, the last to 100%, and runs of unpositioned stops are spread evenly
// between their positioned neighbors. A position below an earlier one is
// raised to it.
func ParseGradient(css string) ([]systems.GradientStop, error) {
	body := strings.TrimSpace(css)
	if open := strings.IndexByte(body, '('); open >= 0 && strings.HasSuffix(body, ")") {
		fn := strings.TrimSpace(body[:open])
		if fn != "linear-gradient" && fn != "repeating-linear-gradient" {
			return nil, fmt.Errorf("%w: unsupported function %q", ErrGradient, fn)
		}
		body = body[open+1 : len(body)-1]
	}

	args := splitTopLevel(body)
	if len(args) > 0 && isDirection(args[0]) {
		args = args[1:]
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no color stops in %q", ErrGradient, css)
	}

	stops := make([]systems.GradientStop, len(args))
	known := make([]bool, len(args))
	for i, arg := range args {
		c, pos, hasPos, err := parseStop(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: stop %d: %v", ErrGradient, i, err)
		}
		stops[i] = systems.GradientStop{Position: pos, Color: c}
		known[i] = hasPos
	}

	fillPositions(stops, known)
	return stops, nil
}

// ParseGradients parses a pool of CSS gradients, logging and skipping
// entries that fail. The result may be empty.
func ParseGradients(css []string, logger *slog.Logger) []systems.Gradient {
	if logger == nil {
		logger = slog.Default()
	}
	pool := make([]systems.Gradient, 0, len(css))
	for _, g := range css {
		stops, err := ParseGradient(g)
		if err != nil {
			logger.Warn("skipping gradient", "gradient", g, "error", err)
			continue
		}
		pool = append(pool, systems.Gradient{Source: g, Stops: stops})
	}
	return pool
}

func fillPositions(stops []systems.GradientStop, known []bool) {
	n := len(stops)
	if !known[0] {
		stops[0].Position = 0
		known[0] = true
	}
	if !known[n-1] {
		stops[n-1].Position = 100
		known[n-1] = true
	}

	// Clamp positioned stops so they never go backwards
	maxSeen := stops[0].Position
	for i := 1; i < n; i++ {
		if !known[i] {
			continue
		}
		if stops[i].Position < maxSeen {
			stops[i].Position = maxSeen
		}
		maxSeen = stops[i].Position
	}

	// Spread unpositioned runs evenly between positioned neighbors
	prev := 0
	for i := 1; i < n; i++ {
		if !known[i] {
			continue
		}
		gap := i - prev
		for j := prev + 1; j < i; j++ {
			t := float64(j-prev) / float64(gap)
			stops[j].Position = stops[prev].Position + t*(stops[i].Position-stops[prev].Position)
		}
		prev = i
	}
}

func isDirection(arg string) bool {
	a := strings.TrimSpace(arg)
	if strings.HasPrefix(a, "to ") {
		return true
	}
	for _, unit := range []string{"deg", "rad", "turn", "grad"} {
		if strings.HasSuffix(a, unit) {
			if _, err := strconv.ParseFloat(strings.TrimSuffix(a, unit), 64); err == nil {
				return true
			}
		}
	}
	return false
}

// parseStop reads "<color> [<pct>%]".
func parseStop(arg string) (colorful.Color, float64, bool, error) {
	arg = strings.TrimSpace(arg)
	colorPart, posPart := arg, ""
	// Position follows the color's closing paren or the first space
	if strings.HasPrefix(arg, "rgb") {
		end := strings.IndexByte(arg, ')')
		if end < 0 {
			return colorful.Color{}, 0, false, fmt.Errorf("unterminated %q", arg)
		}
		colorPart, posPart = arg[:end+1], strings.TrimSpace(arg[end+1:])
	} else if sp := strings.IndexByte(arg, ' '); sp >= 0 {
		colorPart, posPart = arg[:sp], strings.TrimSpace(arg[sp+1:])
	}

	c, err := parseColor(colorPart)
	if err != nil {
		return colorful.Color{}, 0, false, err
	}
	if posPart == "" {
		return c, 0, false, nil
	}
	if !strings.HasSuffix(posPart, "%") {
		return colorful.Color{}, 0, false, fmt.Errorf("position %q must be a percentage", posPart)
	}
	pos, err := strconv.ParseFloat(strings.TrimSuffix(posPart, "%"), 64)
	if err != nil {
		return colorful.Color{}, 0, false, fmt.Errorf("position %q: %v", posPart, err)
	}
	return c, pos, true, nil
}

func parseColor(s string) (colorful.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if strings.HasPrefix(s, "#") {
		return colorful.Hex(s)
	}
	if strings.HasPrefix(s, "rgb") {
		open := strings.IndexByte(s, '(')
		end := strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return colorful.Color{}, fmt.Errorf("malformed %q", s)
		}
		parts := strings.FieldsFunc(s[open+1:end], func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
		if len(parts) < 3 {
			return colorful.Color{}, fmt.Errorf("malformed %q", s)
		}
		var ch [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(parts[i], 64)
			if err != nil {
				return colorful.Color{}, fmt.Errorf("channel %q: %v", parts[i], err)
			}
			ch[i] = v / 255
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}.Clamped(), nil
	}
	return colorful.Color{}, fmt.Errorf("unknown color %q", s)
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		out = append(out, last)
	}
	return out
}
