package download

import (
	"fmt"
	"runtime"
	"strings"
	"unicode"

	"songrab/core/audio"
	"songrab/model"
)

// maxNamedArtists 文件名里最多列出的艺术家数，再多就归为 "and others"
const maxNamedArtists = 3

// cleanFileName 去掉文件系统不接受的字符和控制字符。
// 除 Windows 外保留非 ASCII 字符。
func cleanFileName(name string) string {
	const invalidChars = `<>:'"/\|?*`
	allowsNonASCII := runtime.GOOS != "windows"

	var b strings.Builder
	for _, c := range name {
		if strings.ContainsRune(invalidChars, c) {
			continue
		}
		if unicode.IsControl(c) {
			continue
		}
		if c > unicode.MaxASCII && !allowsNonASCII {
			continue
		}
		b.WriteRune(c)
	}
	return strings.TrimSpace(b.String())
}

// artistLabel 拼接艺术家名，超过三个截断并标注
func artistLabel(artists []string) string {
	if len(artists) == 0 {
		return ""
	}
	if len(artists) > maxNamedArtists {
		return strings.Join(artists[:maxNamedArtists], ", ") + ", and others"
	}
	return strings.Join(artists, ", ")
}

// OutputFileName 生成确定性的输出文件名。
// 两位数的合集序号放在最前面，同名曲目靠序号区分，不会互相覆盖；
// 重复运行得到相同的名字，策略是直接覆盖旧文件。
func OutputFileName(ref model.TrackReference, format audio.Format) string {
	title := cleanFileName(ref.Title)
	if title == "" {
		title = ref.ID
	}

	var base string
	if label := cleanFileName(artistLabel(ref.Artists)); label != "" {
		base = fmt.Sprintf("%02d - %s - %s", ref.Position, label, title)
	} else {
		base = fmt.Sprintf("%02d - %s", ref.Position, title)
	}
	return base + "." + format.Extension()
}
