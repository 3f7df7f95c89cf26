package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"songrab/model"
)

// 解密失败的两种情况需要区分开：密钥被拒绝（解出来的不是合法容器）
// 和流在中途被截断。两者都归类为解密错误，但错误信息不同。
var (
	ErrKeyRejected = errors.New("key material rejected by cipher check")
	ErrTruncated   = errors.New("encrypted stream truncated")
)

// oggMagic 服务端下发的音频容器固定为 Ogg，解密后首块必须以该标记开头
var oggMagic = []byte("OggS")

const (
	aesKeySize = 16
	ctrIVSize  = aes.BlockSize
)

// deriveKeySchedule 从曲目专属的密钥材料导出 AES-128 密钥和 CTR 初始计数器。
// trackID 作为 HKDF 的 info 参数参与导出，同一份材料绑定到同一条流。
func deriveKeySchedule(keyMaterial []byte, trackID string) ([]byte, []byte, error) {
	if len(keyMaterial) == 0 {
		return nil, nil, fmt.Errorf("empty key material: %w", ErrKeyRejected)
	}

	r := hkdf.New(sha256.New, keyMaterial, nil, []byte("songrab/audio/"+trackID))
	out := make([]byte, aesKeySize+ctrIVSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, nil, fmt.Errorf("hkdf expand failed: %w", err)
	}
	return out[:aesKeySize], out[aesKeySize:], nil
}

// decryptReader 按块增量解密，不会把整条曲目缓冲进内存。
// 首次读取时校验容器魔数，密钥错误在第一块就会暴露。
type decryptReader struct {
	src     io.Reader
	stream  cipher.Stream
	header  []byte // 已解密的头部字节，凑满魔数长度后校验一次
	checked bool
}

// NewReader 包装一条加密流，返回惰性解密的读取器。
// 密钥材料与流是一一对应的，跨流复用属于调用方错误。
func NewReader(s *model.EncryptedStream) (io.Reader, error) {
	key, iv, err := deriveKeySchedule(s.Key, s.TrackID)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init failed: %w", err)
	}

	return &decryptReader{
		src:    s.Body,
		stream: cipher.NewCTR(block, iv),
	}, nil
}

func (r *decryptReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.stream.XORKeyStream(p[:n], p[:n])

		if !r.checked {
			r.header = append(r.header, p[:n]...)
			if len(r.header) >= len(oggMagic) {
				if !bytes.Equal(r.header[:len(oggMagic)], oggMagic) {
					return 0, ErrKeyRejected
				}
				r.checked = true
				r.header = nil
			}
		}
	}

	if err != nil && err != io.EOF {
		// 底层流中途断掉，对上层表现为解密错误而非网络错误
		return n, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if err == io.EOF && !r.checked {
		// 流在容器头之前就结束了
		return n, ErrTruncated
	}
	return n, err
}

// EncryptForTest 用同一套密钥调度加密明文，供测试构造合成流使用。
func EncryptForTest(plaintext, keyMaterial []byte, trackID string) ([]byte, error) {
	key, iv, err := deriveKeySchedule(keyMaterial, trackID)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(out, plaintext)
	return out, nil
}
