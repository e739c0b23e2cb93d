package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/adnanh27/postbridge/configs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/repository"
)

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

type MediaService interface {
	Upload(ctx context.Context, orgID int64, files []*multipart.FileHeader) ([]*models.MediaAsset, error)
	List(ctx context.Context, orgID int64) ([]*models.MediaAsset, error)
}

type mediaService struct {
	cfg config.Config
	ma  repository.MediaAssetRepository
}

func NewMediaService(cfg config.Config, ma repository.MediaAssetRepository) MediaService {
	return &mediaService{cfg: cfg, ma: ma}
}

func (s *mediaService) r2Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.cfg.R2.AccessKey, s.cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.cfg.R2.AccountID))
	}), nil
}

func (s *mediaService) Upload(ctx context.Context, orgID int64, files []*multipart.FileHeader) ([]*models.MediaAsset, error) {
	client, err := s.r2Client(ctx)
	if err != nil {
		return nil, err
	}

	var assets []*models.MediaAsset
	for _, file := range files {
		asset, err := s.uploadOne(ctx, client, orgID, file)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func (s *mediaService) uploadOne(ctx context.Context, client *s3.Client, orgID int64, file *multipart.FileHeader) (*models.MediaAsset, error) {
	content, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer content.Close()

	fileBytes, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, fmt.Errorf("unsupported file type")
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fileBytes),
		ContentType: aws.String(fileType.MIME.Value),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	asset := &models.MediaAsset{
		OrgID:    orgID,
		FileName: key,
		FileType: fileType.MIME.Value,
		FileSize: int64(len(fileBytes)),
		FileURL:  fmt.Sprintf("%s/%s", s.cfg.R2.PublicURL, key),
	}

	assetID, err := s.ma.Create(ctx, nil, asset)
	if err != nil {
		return nil, err
	}
	asset.ID = assetID

	return asset, nil
}

func (s *mediaService) List(ctx context.Context, orgID int64) ([]*models.MediaAsset, error) {
	assets, err := s.ma.ListByOrgID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("error listing media assets")
	}
	return assets, nil
}
