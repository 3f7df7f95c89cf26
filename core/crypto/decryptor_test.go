package crypto

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"songrab/model"
)

func oggPayload(size int) []byte {
	payload := make([]byte, size)
	copy(payload, "OggS")
	for i := 4; i < size; i++ {
		payload[i] = byte(i % 251)
	}
	return payload
}

func encryptedStream(t *testing.T, plaintext, key []byte, trackID string) *model.EncryptedStream {
	t.Helper()
	ciphertext, err := EncryptForTest(plaintext, key, trackID)
	if err != nil {
		t.Fatalf("EncryptForTest: %v", err)
	}
	return &model.EncryptedStream{
		TrackID: trackID,
		Key:     key,
		Body:    io.NopCloser(bytes.NewReader(ciphertext)),
	}
}

func TestDecryptRoundTrip(t *testing.T) {
	plaintext := oggPayload(64 * 1024)
	key := []byte("track-key-material")

	r, err := NewReader(encryptedStream(t, plaintext, key, "t1"))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("decrypted output differs from plaintext")
	}
}

func TestDecryptIsIncremental(t *testing.T) {
	plaintext := oggPayload(10 * 1024)
	key := []byte("k")

	r, err := NewReader(encryptedStream(t, plaintext, key, "t1"))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	// Read in small chunks, output must still line up.
	var got []byte
	buf := make([]byte, 7)
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("chunked decrypt differs from plaintext")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	plaintext := oggPayload(4096)
	stream := encryptedStream(t, plaintext, []byte("right-key"), "t1")
	stream.Key = []byte("wrong-key")

	r, err := NewReader(stream)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = io.ReadAll(r)
	if !errors.Is(err, ErrKeyRejected) {
		t.Fatalf("expected ErrKeyRejected, got %v", err)
	}
}

func TestDecryptKeyBoundToTrack(t *testing.T) {
	// Reusing the same key material on another track's stream must fail
	// the container check: the track id participates in key derivation.
	plaintext := oggPayload(4096)
	stream := encryptedStream(t, plaintext, []byte("shared-key"), "t1")
	stream.TrackID = "t2"

	r, err := NewReader(stream)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := io.ReadAll(r); !errors.Is(err, ErrKeyRejected) {
		t.Fatalf("expected ErrKeyRejected, got %v", err)
	}
}

func TestDecryptEmptyKeyMaterial(t *testing.T) {
	stream := &model.EncryptedStream{
		TrackID: "t1",
		Key:     nil,
		Body:    io.NopCloser(strings.NewReader("data")),
	}
	if _, err := NewReader(stream); !errors.Is(err, ErrKeyRejected) {
		t.Fatalf("expected ErrKeyRejected for empty key material, got %v", err)
	}
}

func TestDecryptEmptyStream(t *testing.T) {
	stream := &model.EncryptedStream{
		TrackID: "t1",
		Key:     []byte("k"),
		Body:    io.NopCloser(bytes.NewReader(nil)),
	}
	r, err := NewReader(stream)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := io.ReadAll(r); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for empty stream, got %v", err)
	}
}

type failingReader struct {
	r    io.Reader
	left int
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.left <= 0 {
		return 0, errors.New("connection reset")
	}
	if len(p) > f.left {
		p = p[:f.left]
	}
	n, err := f.r.Read(p)
	f.left -= n
	return n, err
}

func TestDecryptTruncatedMidStream(t *testing.T) {
	plaintext := oggPayload(32 * 1024)
	key := []byte("k")
	ciphertext, err := EncryptForTest(plaintext, key, "t1")
	if err != nil {
		t.Fatalf("EncryptForTest: %v", err)
	}

	stream := &model.EncryptedStream{
		TrackID: "t1",
		Key:     key,
		Body:    io.NopCloser(&failingReader{r: bytes.NewReader(ciphertext), left: 8 * 1024}),
	}
	r, err := NewReader(stream)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := io.ReadAll(r); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
