package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Виды публикуемого аудио: реплика (ключ по порядковому номеру) и
// озвученный вердикт (фиксированное имя файла).
const (
	MediaKindTurn     = "turn"
	MediaKindJudgment = "judgment"
)

// MediaStorage публикует аудио в объектное хранилище и выдаёт ссылки с
// ограниченным сроком: 24 часа на воспроизведение, 1 час на прямую загрузку.
type MediaStorage struct {
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	mediaTTL  time.Duration
	uploadTTL time.Duration
}

// NewMediaStorage создаёт хранилище поверх S3.
func NewMediaStorage(ctx context.Context, bucket, region string, mediaTTL, uploadTTL time.Duration) (*MediaStorage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось загрузить конфигурацию AWS: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &MediaStorage{
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		mediaTTL:  mediaTTL,
		uploadTTL: uploadTTL,
	}, nil
}

// Publish загружает буфер (multipart при большом размере) и возвращает
// долговечный ключ вместе со ссылкой на воспроизведение.
func (s *MediaStorage) Publish(ctx context.Context, data []byte, contentType string, ownerID, disputeID uuid.UUID, kind string, seq int) (string, string, error) {
	key := objectKey(ownerID, disputeID, kind, seq)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("storage: не удалось загрузить %s: %w", key, err)
	}

	url, err := s.PlaybackURL(ctx, key)
	if err != nil {
		return "", "", err
	}

	return key, url, nil
}

// PlaybackURL выдаёт временную ссылку на скачивание объекта (аренда 24 часа).
func (s *MediaStorage) PlaybackURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.mediaTTL))
	if err != nil {
		return "", fmt.Errorf("storage: не удалось подписать ссылку %s: %w", key, err)
	}
	return req.URL, nil
}

// UploadURL выдаёт клиенту ссылку на прямую загрузку (аренда 1 час) и ключ,
// под которым объект окажется в хранилище.
func (s *MediaStorage) UploadURL(ctx context.Context, ownerID, disputeID uuid.UUID, seq int) (string, string, error) {
	key := objectKey(ownerID, disputeID, MediaKindTurn, seq)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.uploadTTL))
	if err != nil {
		return "", "", fmt.Errorf("storage: не удалось подписать ссылку загрузки %s: %w", key, err)
	}
	return key, req.URL, nil
}

// objectKey собирает ключ объекта из владельца, спора и вида аудио.
func objectKey(ownerID, disputeID uuid.UUID, kind string, seq int) string {
	if kind == MediaKindJudgment {
		return fmt.Sprintf("users/%s/disputes/%s/verdict.mp3", ownerID, disputeID)
	}
	return fmt.Sprintf("users/%s/disputes/%s/turns/%d.mp3", ownerID, disputeID, seq)
}
