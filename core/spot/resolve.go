package spot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"songrab/logger"
	"songrab/model"
)

// 内容标识符的三种类型
const (
	kindTrack    = "track"
	kindAlbum    = "album"
	kindPlaylist = "playlist"
)

// parseIdentifier 解析内容标识符，支持两种写法：
//
//	https://open.example.com/track/4uLU6hMCjMI75M1A2tKUQC
//	spot:album:6G9fHYDCoyEErUkHrFYfs4
func parseIdentifier(identifier string) (kind, id string, err error) {
	if strings.Contains(identifier, ":") && !strings.Contains(identifier, "://") {
		parts := strings.Split(identifier, ":")
		if len(parts) == 3 && parts[1] != "" && parts[2] != "" {
			return parts[1], parts[2], validateKind(parts[1], identifier)
		}
		return "", "", fmt.Errorf("malformed content URI: %q", identifier)
	}

	u, err := url.Parse(identifier)
	if err != nil {
		return "", "", fmt.Errorf("malformed content URL %q: %w", identifier, err)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 {
		return "", "", fmt.Errorf("content URL %q has no type/id path", identifier)
	}
	kind, id = segs[len(segs)-2], segs[len(segs)-1]
	// 去掉 ?si= 之类的查询残留
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	return kind, id, validateKind(kind, identifier)
}

func validateKind(kind, identifier string) error {
	switch kind {
	case kindTrack, kindAlbum, kindPlaylist:
		return nil
	default:
		return fmt.Errorf("unsupported content type %q in %q", kind, identifier)
	}
}

// trackPayload 服务端返回的曲目元数据
type trackPayload struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Position int      `json:"position"`
}

func (p trackPayload) toReference(fallbackPos int) model.TrackReference {
	pos := p.Position
	if pos <= 0 {
		pos = fallbackPos
	}
	return model.TrackReference{
		ID:       p.ID,
		Title:    p.Title,
		Artists:  p.Artists,
		Position: pos,
	}
}

// Resolve 把一个内容标识符展开为曲目引用列表。
// 专辑和歌单按服务端返回顺序编号，单曲沿用其在专辑里的位置。
func (c *Client) Resolve(ctx context.Context, identifier string) ([]model.TrackReference, error) {
	kind, id, err := parseIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	logger.Debug("resolving identifier",
		logger.String("kind", kind),
		logger.String("id", id))

	switch kind {
	case kindTrack:
		var payload trackPayload
		if err := c.getJSON(ctx, "/v1/tracks/"+url.PathEscape(id), &payload); err != nil {
			return nil, fmt.Errorf("resolve track %s: %w", id, err)
		}
		return []model.TrackReference{payload.toReference(1)}, nil

	case kindAlbum, kindPlaylist:
		var payload struct {
			Tracks []trackPayload `json:"tracks"`
		}
		path := fmt.Sprintf("/v1/%ss/%s/tracks", kind, url.PathEscape(id))
		if err := c.getJSON(ctx, path, &payload); err != nil {
			return nil, fmt.Errorf("resolve %s %s: %w", kind, id, err)
		}
		refs := make([]model.TrackReference, 0, len(payload.Tracks))
		for i, t := range payload.Tracks {
			refs = append(refs, t.toReference(i+1))
		}
		return refs, nil
	}

	return nil, fmt.Errorf("unsupported content type %q", kind)
}
