// Package serialization encodes flow snapshots for storage: a codec, optional
// compression and optional AES-GCM encryption, applied in that order.
package serialization

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrUnknownCodec       = errors.New("unknown codec")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext size")
)

// CompressionType represents compression algorithms
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

// CompressionByName resolves a configured compression name. An empty name
// means no compression.
func CompressionByName(name string) (CompressionType, error) {
	switch c := CompressionType(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return CompressionNone, nil
	case CompressionNone, CompressionGzip, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// SerializationConfig holds serialization settings
type SerializationConfig struct {
	Codec       Codec
	Compression CompressionType
	EncryptKey  []byte // AES-256 key (32 bytes)
}

// Serializer runs the full encode pipeline
type Serializer struct {
	config SerializationConfig
}

// NewSerializer creates a new serializer with configuration. A nil codec
// falls back to JSON.
func NewSerializer(config SerializationConfig) *Serializer {
	if config.Codec == nil {
		config.Codec = NewJSONCodec()
	}
	return &Serializer{config: config}
}

// Codec returns the codec in use
func (s *Serializer) Codec() Codec {
	return s.config.Codec
}

// Compression returns the configured compression
func (s *Serializer) Compression() CompressionType {
	if s.config.Compression == "" {
		return CompressionNone
	}
	return s.config.Compression
}

// Extension is a file name suffix describing the pipeline, e.g. "json" or
// "msgpack.zstd". Encrypted output ends in ".enc".
func (s *Serializer) Extension() string {
	ext := s.config.Codec.Name()
	if c := s.Compression(); c != CompressionNone {
		ext += "." + string(c)
	}
	if len(s.config.EncryptKey) > 0 {
		ext += ".enc"
	}
	return ext
}

// Serialize encodes, compresses, and encrypts data
func (s *Serializer) Serialize(v interface{}) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("codec encoding failed: %w", err)
	}

	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}

	if len(s.config.EncryptKey) > 0 {
		data, err = s.encrypt(data)
		if err != nil {
			return nil, fmt.Errorf("encryption failed: %w", err)
		}
	}

	return data, nil
}

// Deserialize decrypts, decompresses, and decodes data
func (s *Serializer) Deserialize(data []byte, v interface{}) error {
	var err error

	if len(s.config.EncryptKey) > 0 {
		data, err = s.decrypt(data)
		if err != nil {
			return fmt.Errorf("decryption failed: %w", err)
		}
	}

	data, err = s.decompress(data)
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}

	if err := s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("codec decoding failed: %w", err)
	}

	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionGzip:
		return compressGzip(data)
	case CompressionZstd:
		return compressZstd(data)
	default:
		return data, nil
	}
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionGzip:
		return decompressGzip(data)
	case CompressionZstd:
		return decompressZstd(data)
	default:
		return data, nil
	}
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

func (s *Serializer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.config.EncryptKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encrypt seals data with AES-GCM, prefixing the random nonce
func (s *Serializer) encrypt(data []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *Serializer) decrypt(data []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// DefaultSerializer stores snapshots as zstd-compressed MessagePack
func DefaultSerializer() *Serializer {
	return NewSerializer(SerializationConfig{
		Codec:       NewMsgPackCodec(),
		Compression: CompressionZstd,
	})
}
