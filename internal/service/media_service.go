package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	ErrInvalidFolder      = errors.New("invalid upload folder")
	ErrFileTooLarge       = errors.New("file exceeds the upload size limit")
	ErrEmptyFile          = errors.New("file is empty")
	ErrStorageUnavailable = errors.New("media storage temporarily unavailable")
)

const (
	MaxUploadSize = 10 << 20
	maxImageWidth = 1024
)

// UploadFolders are the key prefixes clients may upload into.
var UploadFolders = map[string]bool{
	"profile-pictures": true,
	"certifications":   true,
	"projects":         true,
	"documents":        true,
}

// ObjectStore persists an object and returns a durable URL for it.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Upload struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type MediaService struct {
	store ObjectStore
	cb    *gobreaker.CircuitBreaker
	log   *zap.Logger
}

type BreakerSettings struct {
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

func NewMediaService(store ObjectStore, bs BreakerSettings, log *zap.Logger) *MediaService {
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 5
	}
	if bs.Timeout <= 0 {
		bs.Timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "media-store",
		MaxRequests: 1,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &MediaService{store: store, cb: cb, log: log}
}

// Upload stores a file for userID under folder. Images wider than 1024px are
// scaled down and re-encoded; other files are stored unchanged.
func (s *MediaService) Upload(ctx context.Context, userID, folder, filename, contentType string, data []byte) (*Upload, error) {
	if !UploadFolders[folder] {
		return nil, ErrInvalidFolder
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	if strings.HasPrefix(contentType, "image/") {
		resized, ct, err := resizeImage(data, contentType)
		if err != nil {
			s.log.Warn("image not resized, storing original", zap.String("filename", filename), zap.Error(err))
		} else {
			data, contentType = resized, ct
		}
	}

	key := fmt.Sprintf("%s/%s/%s_%s", folder, userID, uuid.NewString(), sanitizeFilename(filename))

	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.store.Put(ctx, key, contentType, data)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrStorageUnavailable
		}
		return nil, fmt.Errorf("storing object: %w", err)
	}

	return &Upload{
		URL:         res.(string),
		Key:         key,
		ContentType: contentType,
		Size:        len(data),
	}, nil
}

func resizeImage(data []byte, contentType string) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if img.Bounds().Dx() <= maxImageWidth {
		return data, contentType, nil
	}

	resized := imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	outFormat, outType := imaging.JPEG, "image/jpeg"
	if format == "png" {
		outFormat, outType = imaging.PNG, "image/png"
	}
	if err := imaging.Encode(&buf, resized, outFormat); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), outType, nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
