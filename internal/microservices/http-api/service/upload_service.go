package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUploadTokenInvalid = errors.New("upload token is unknown, expired or already used")
	ErrBlobNotFound       = errors.New("blob not found")
)

// UploadTokenStore tracks outstanding one-shot upload tokens. Consume must
// atomically check-and-delete so a token cannot be spent twice.
type UploadTokenStore interface {
	Put(ctx context.Context, token string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (bool, error)
}

// UploadTarget is the one-shot destination handed to a client that wants to
// attach a file. The client PUTs the raw bytes to URL and gets back an opaque
// blob ref to put on the message.
type UploadTarget struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadService is the storage boundary for file attachments: issue an
// upload target, accept the direct transfer, serve the blob back by ref.
type UploadService interface {
	RequestUploadTarget(ctx context.Context, caller Caller) (*UploadTarget, error)
	SaveBlob(ctx context.Context, token string, body io.Reader) (ref string, err error)
	BlobPath(ref string) (string, error)
}

type uploadService struct {
	tokens   UploadTokenStore
	dataDir  string
	baseURL  string
	tokenTTL time.Duration
}

func NewUploadService(tokens UploadTokenStore, dataDir, baseURL string, tokenTTL time.Duration) (UploadService, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &uploadService{
		tokens:   tokens,
		dataDir:  dataDir,
		baseURL:  baseURL,
		tokenTTL: tokenTTL,
	}, nil
}

func (s *uploadService) RequestUploadTarget(ctx context.Context, caller Caller) (*UploadTarget, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthorized
	}

	token := uuid.New().String()
	if err := s.tokens.Put(ctx, token, s.tokenTTL); err != nil {
		return nil, fmt.Errorf("failed to record upload token: %w", err)
	}

	return &UploadTarget{
		URL:       fmt.Sprintf("%s/uploads/%s", s.baseURL, token),
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenTTL),
	}, nil
}

// SaveBlob consumes the one-shot token and streams the body to disk,
// returning the opaque ref a message can carry in FileRef.
func (s *uploadService) SaveBlob(ctx context.Context, token string, body io.Reader) (string, error) {
	ok, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to consume upload token: %w", err)
	}
	if !ok {
		return "", ErrUploadTokenInvalid
	}

	ref := uuid.New().String()
	path := filepath.Join(s.dataDir, ref)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return ref, nil
}

// BlobPath maps a ref back to its file. Refs are always UUIDs, anything else
// is rejected before it can reach the filesystem.
func (s *uploadService) BlobPath(ref string) (string, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return "", ErrBlobNotFound
	}
	path := filepath.Join(s.dataDir, ref)
	if _, err := os.Stat(path); err != nil {
		return "", ErrBlobNotFound
	}
	return path, nil
}
