// Package gdrive publishes relayed videos into per-platform folders under a
// shared Google Drive root, authenticating as a service account.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

var ErrNotConfigured = errors.New("gdrive: service account email, private key and root folder are required")

type Config struct {
	ServiceAccountEmail string
	PrivateKey          string // PEM, PKCS#8 or PKCS#1
	RootFolderID        string
	TokenURL            string
	// Endpoint overrides the Drive API base path, e.g. for a local fake.
	Endpoint string
	// HTTPClient is the base transport for token and API calls.
	HTTPClient *http.Client
}

type UploadedFile struct {
	ID          string
	Name        string
	WebViewLink string
}

type Client struct {
	svc  *drive.Service
	root string

	mu      sync.Mutex
	folders map[string]*sync.Mutex
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" || cfg.RootFolderID == "" {
		return nil, ErrNotConfigured
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = "https://oauth2.googleapis.com/token"
	}

	conf := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		Scopes:     []string{drive.DriveFileScope},
		TokenURL:   tokenURL,
		Expires:    time.Hour,
	}

	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}

	opts := []option.ClientOption{option.WithHTTPClient(conf.Client(ctx))}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{svc: svc, root: cfg.RootFolderID, folders: make(map[string]*sync.Mutex)}, nil
}

// EnsureFolder returns the id of the named folder under the root, creating
// it when absent. Calls for the same name are serialised in this process;
// two processes can still race and create duplicates.
func (c *Client) EnsureFolder(ctx context.Context, name string) (string, error) {
	lock := c.folderLock(name)
	lock.Lock()
	defer lock.Unlock()

	id, err := c.findFolder(ctx, name)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	created, err := c.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{c.root},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return created.Id, nil
}

func (c *Client) findFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='%s' and trashed=false",
		escapeQuery(name), escapeQuery(c.root), folderMimeType)

	list, err := c.svc.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search folder %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// Upload streams r into folderID. Small bodies go up as one multipart
// request, large ones through a resumable session.
func (c *Client) Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader) (*UploadedFile, error) {
	f, err := c.svc.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{folderID},
	}).Media(r, googleapi.ContentType(mimeType)).
		Fields("id, name, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", name, err)
	}
	return &UploadedFile{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink}, nil
}

func (c *Client) folderLock(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.folders[name]
	if !ok {
		l = &sync.Mutex{}
		c.folders[name] = l
	}
	return l
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
