package utils

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader stores images in Cloudinary.
type CloudinaryUploader struct {
	cld          *cloudinary.Cloudinary
	uploadPreset string
}

// NewCloudinaryUploader initializes the Cloudinary client
func NewCloudinaryUploader(cloudName, apiKey, apiSecret, uploadPreset string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, uploadPreset: uploadPreset}, nil
}

// Upload sends file (a path, URL or io.Reader) and returns the secure URL.
// Images are cropped to a square thumbnail.
func (u *CloudinaryUploader) Upload(ctx context.Context, file interface{}, publicID, folder string) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:       publicID,
		Folder:         folder,
		UploadPreset:   u.uploadPreset,
		Transformation: "c_thumb,w_400,h_400",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", errors.New("cloudinary upload: " + resp.Error.Message)
	}
	return resp.SecureURL, nil
}
