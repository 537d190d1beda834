package utils

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	storage "github.com/supabase-community/storage-go"
)

// ArchiveWorkbook uploads the original uploaded file to Supabase storage so
// the raw workbook survives dataset deletion. Archiving is optional: with no
// credentials configured the upload is skipped.
func ArchiveWorkbook(data []byte, filename string) (string, error) {
	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_KEY")
	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		bucket = "workbooks"
	}
	if supabaseURL == "" || supabaseKey == "" {
		return "", nil
	}

	client := storage.NewClient(supabaseURL+"/storage/v1", supabaseKey, nil)

	objectPath := fmt.Sprintf("uploads/%d_%s", time.Now().UnixNano(), filename)
	contentType := "application/octet-stream"
	upsert := false
	_, err := client.UploadFile(bucket, objectPath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		log.Warn().Err(err).Str("object", objectPath).Msg("workbook archive upload failed")
		return "", err
	}

	publicURL := client.GetPublicUrl(bucket, objectPath)
	return publicURL.SignedURL, nil
}
