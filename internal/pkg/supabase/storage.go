package supabase

import (
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// Uploader pushes user-uploaded images to the hosted Supabase storage bucket.
type Uploader struct {
	client *storage_go.Client
	bucket string
}

// NewUploader creates a storage client against the project's storage endpoint.
func NewUploader(supabaseURL, serviceKey, bucket string) *Uploader {
	base := strings.TrimSuffix(supabaseURL, "/")
	if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}
	client := storage_go.NewClient(base+"/storage/v1", serviceKey, nil)
	return &Uploader{client: client, bucket: bucket}
}

// Upload stores the object and returns its public URL.
func (u *Uploader) Upload(path string, data io.Reader, contentType string) (string, error) {
	upsert := true
	_, err := u.client.UploadFile(u.bucket, path, data, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to bucket %s: %w", u.bucket, err)
	}

	res := u.client.GetPublicUrl(u.bucket, path)
	return res.SignedURL, nil
}
