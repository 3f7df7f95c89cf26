package audio

import "fmt"

// Format 输出音频格式，封闭集合
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMP3:
		return FormatMP3, nil
	case FormatFLAC:
		return FormatFLAC, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q", s)
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// FLAC compression level bounds (standard preset range, passed straight to ffmpeg).
const (
	MinCompression = 0
	MaxCompression = 8
)
