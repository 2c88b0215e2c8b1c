// Package azblob provides an Azure Blob Storage object store used to stage
// vision images. Blobs are written over the REST surface with SAS
// authorization; the returned URL carries a short-lived read-only SAS.
package azblob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const signedVersion = "2021-08-06"

// Config holds the storage account configuration.
type Config struct {
	AccountName string
	AccountKey  string
	Container   string
	// SASValidity is how long the returned read URL stays valid.
	SASValidity time.Duration
	HTTPClient  *http.Client
}

// Store implements objectstore.Store against Azure Blob Storage.
type Store struct {
	accountName string
	accountKey  []byte
	container   string
	sasValidity time.Duration
	httpClient  *http.Client
}

// NewStore creates a new blob store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("storage account key is required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("storage container is required")
	}

	key, err := base64.StdEncoding.DecodeString(cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("storage account key is not valid base64: %w", err)
	}

	validity := cfg.SASValidity
	if validity == 0 {
		validity = time.Hour
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Store{
		accountName: cfg.AccountName,
		accountKey:  key,
		container:   cfg.Container,
		sasValidity: validity,
		httpClient:  httpClient,
	}, nil
}

// Upload writes the object as a block blob under a random name and returns
// its URL with a read-only SAS attached.
func (s *Store) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	blobName := uuid.NewString() + ".png"
	now := time.Now().UTC()

	// Separate write SAS for the upload; the caller only ever sees the
	// read-only one.
	writeSAS := s.signSAS(blobName, "cw", now, now.Add(15*time.Minute))
	putURL := s.blobURL(blobName) + "?" + writeSAS

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("x-ms-version", signedVersion)
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(data))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("blob upload failed: unexpected status %d", resp.StatusCode)
	}

	readSAS := s.signSAS(blobName, "r", now, now.Add(s.sasValidity))
	return s.blobURL(blobName) + "?" + readSAS, nil
}

func (s *Store) blobURL(blobName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", s.accountName, s.container, blobName)
}

// signSAS builds a service SAS query string for one blob.
func (s *Store) signSAS(blobName, permissions string, start, expiry time.Time) string {
	st := start.Format("2006-01-02T15:04:05Z")
	se := expiry.Format("2006-01-02T15:04:05Z")
	canonicalizedResource := fmt.Sprintf("/blob/%s/%s/%s", s.accountName, s.container, blobName)

	// Service SAS string-to-sign, field order fixed by the storage REST spec.
	stringToSign := permissions + "\n" +
		st + "\n" +
		se + "\n" +
		canonicalizedResource + "\n" +
		"\n" + // signedIdentifier
		"\n" + // signedIP
		"https\n" +
		signedVersion + "\n" +
		"b\n" + // signedResource
		"\n" + // signedSnapshotTime
		"\n" + // rscc
		"\n" + // rscd
		"\n" + // rsce
		"\n" + // rscl
		"" // rsct

	mac := hmac.New(sha256.New, s.accountKey)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("sv", signedVersion)
	q.Set("sr", "b")
	q.Set("sp", permissions)
	q.Set("st", st)
	q.Set("se", se)
	q.Set("spr", "https")
	q.Set("sig", signature)
	return q.Encode()
}
