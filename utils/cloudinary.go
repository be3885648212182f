package utils

import (
	"context"
	"errors"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var ErrUploadDisabled = errors.New("image upload is not configured")

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, publicID, folder string) (string, error)
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	preset string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, preset string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld, preset: preset}, nil
}

// Upload sends file to Cloudinary and returns the secure URL. Profile images
// are cut to a 200x200 thumbnail.
func (u *CloudinaryUploader) Upload(ctx context.Context, file interface{}, publicID, folder string) (string, error) {
	overwrite := true
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:       publicID,
		Folder:         folder,
		UploadPreset:   u.preset,
		Overwrite:      &overwrite,
		Transformation: "c_thumb,w_200,h_200",
	})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// NoUploader rejects every upload.
type NoUploader struct{}

func (NoUploader) Upload(context.Context, interface{}, string, string) (string, error) {
	return "", ErrUploadDisabled
}
