package imagestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// DefaultFolder is the Cloudinary folder used when none is configured.
const DefaultFolder = "chirper"

// uploadAPI is the subset of the Cloudinary upload API the store needs.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores images in a Cloudinary folder.
type Cloudinary struct {
	api    uploadAPI
	folder string
}

// NewCloudinary connects with account credentials.
func NewCloudinary(cloud, key, secret, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloud, key, secret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return newCloudinary(&cld.Upload, folder), nil
}

func newCloudinary(api uploadAPI, folder string) *Cloudinary {
	if folder == "" {
		folder = DefaultFolder
	}
	return &Cloudinary{api: api, folder: strings.Trim(folder, "/")}
}

// Upload implements Store; the secure URL is the reference.
func (c *Cloudinary) Upload(ctx context.Context, filePath string) (string, error) {
	res, err := c.api.Upload(ctx, filePath, uploader.UploadParams{Folder: c.folder})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty secure_url")
	}
	return res.SecureURL, nil
}

// Delete implements Store.
func (c *Cloudinary) Delete(ctx context.Context, ref string) error {
	id := c.publicID(ref)
	if id == "" {
		return nil
	}
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: id})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	switch res.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("cloudinary destroy: result %q", res.Result)
	}
}

// publicID derives "<folder>/<name>" from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v17/chirper/abc.jpg.
func (c *Cloudinary) publicID(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" {
		return ""
	}
	return c.folder + "/" + name
}
