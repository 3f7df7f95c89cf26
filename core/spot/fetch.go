package spot

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"songrab/model"
)

// audioKeyHeader 流响应中携带曲目密钥材料的头
const audioKeyHeader = "X-Audio-Key"

// Fetch 拉取一条曲目的加密音频流。
// 返回的流是一次性的，调用方负责关闭；密钥材料只对这一条流有效。
func (c *Client) Fetch(ctx context.Context, trackID string) (*model.EncryptedStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/tracks/"+url.PathEscape(trackID)+"/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stream of %s: %w", trackID, err)
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("stream of %s returned status %d", trackID, resp.StatusCode)
	}

	keyB64 := resp.Header.Get(audioKeyHeader)
	if keyB64 == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("stream of %s is missing key material", trackID)
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("decode key material of %s: %w", trackID, err)
	}

	return &model.EncryptedStream{
		TrackID: trackID,
		Key:     key,
		Body:    resp.Body,
	}, nil
}
