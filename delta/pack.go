package delta

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/s4lvi/historyengine-sub002/matrix"
)

// PackText renders d as the base-36 text wire format of spec.md §4.7:
// "a:x1,y1;x2,y2|s:x3,y3". It reports false (meaning: send null) when the
// delta carries no changes.
func PackText(d *Delta) (string, bool) {
	if d == nil || d.Empty() {
		return "", false
	}
	var sb strings.Builder
	if len(d.Add) > 0 {
		sb.WriteString("a:")
		writePointsBase36(&sb, d.Add)
	}
	if len(d.Sub) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("s:")
		writePointsBase36(&sb, d.Sub)
	}
	return sb.String(), true
}

func writePointsBase36(sb *strings.Builder, pts []matrix.Point) {
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatInt(int64(p.X), 36))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatInt(int64(p.Y), 36))
	}
}

// UnpackText parses the wire format produced by PackText.
func UnpackText(s string) (*Delta, error) {
	d := &Delta{}
	if s == "" {
		return d, nil
	}
	for _, section := range strings.Split(s, "|") {
		kind, body, ok := strings.Cut(section, ":")
		if !ok {
			return nil, fmt.Errorf("delta: malformed section %q", section)
		}
		pts, err := parsePointsBase36(body)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "a":
			d.Add = pts
		case "s":
			d.Sub = pts
		default:
			return nil, fmt.Errorf("delta: unknown section kind %q", kind)
		}
	}
	return d, nil
}

func parsePointsBase36(body string) ([]matrix.Point, error) {
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ";")
	out := make([]matrix.Point, 0, len(parts))
	for _, part := range parts {
		xs, ys, ok := strings.Cut(part, ",")
		if !ok {
			return nil, fmt.Errorf("delta: malformed point %q", part)
		}
		x, err := strconv.ParseInt(xs, 36, 32)
		if err != nil {
			return nil, fmt.Errorf("delta: bad x %q: %w", xs, err)
		}
		y, err := strconv.ParseInt(ys, 36, 32)
		if err != nil {
			return nil, fmt.Errorf("delta: bad y %q: %w", ys, err)
		}
		out = append(out, matrix.Point{X: int(x), Y: int(y)})
	}
	return out, nil
}

// PackBinary renders d as [addCount u16, subCount u16, x0,y0, ...] (each
// coordinate a u16), base64-encoded, for clients that advertise the binary
// delta format (spec.md §4.7). Reports false when the delta is empty.
func PackBinary(d *Delta) (string, bool) {
	if d == nil || d.Empty() {
		return "", false
	}
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(d.Add)))
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(d.Sub)))
	for _, p := range d.Add {
		_ = binary.Write(buf, binary.LittleEndian, uint16(p.X))
		_ = binary.Write(buf, binary.LittleEndian, uint16(p.Y))
	}
	for _, p := range d.Sub {
		_ = binary.Write(buf, binary.LittleEndian, uint16(p.X))
		_ = binary.Write(buf, binary.LittleEndian, uint16(p.Y))
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), true
}

// UnpackBinary parses the wire format produced by PackBinary.
func UnpackBinary(s string) (*Delta, error) {
	d := &Delta{}
	if s == "" {
		return d, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("delta: bad base64: %w", err)
	}
	r := bytes.NewReader(raw)
	var addCount, subCount uint16
	if err := binary.Read(r, binary.LittleEndian, &addCount); err != nil {
		return nil, fmt.Errorf("delta: truncated header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &subCount); err != nil {
		return nil, fmt.Errorf("delta: truncated header: %w", err)
	}
	readPoints := func(n uint16) ([]matrix.Point, error) {
		if n == 0 {
			return nil, nil
		}
		pts := make([]matrix.Point, n)
		for i := range pts {
			var x, y uint16
			if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
				return nil, fmt.Errorf("delta: truncated body: %w", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
				return nil, fmt.Errorf("delta: truncated body: %w", err)
			}
			pts[i] = matrix.Point{X: int(x), Y: int(y)}
		}
		return pts, nil
	}
	if d.Add, err = readPoints(addCount); err != nil {
		return nil, err
	}
	if d.Sub, err = readPoints(subCount); err != nil {
		return nil, err
	}
	return d, nil
}
