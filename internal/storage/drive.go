package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/recvault/vault-server-go/internal/config"
)

const (
	driveAPIBaseURL = "https://www.googleapis.com"
	driveFileFields = "id,name,mimeType,size,webViewLink"
)

// RefreshTokenSource yields the current Drive refresh token, or "" when Drive
// has not been connected.
type RefreshTokenSource interface {
	RefreshToken(ctx context.Context) (string, error)
}

type DriveProvider struct {
	oauth      *oauth2.Config
	tokens     RefreshTokenSource
	httpClient *http.Client
	baseURL    string

	mu           sync.Mutex
	cachedFor    string
	cachedSource oauth2.TokenSource
}

func NewDriveProvider(oauth *oauth2.Config, tokens RefreshTokenSource, httpClient *http.Client) *DriveProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DriveProvider{
		oauth:      oauth,
		tokens:     tokens,
		httpClient: httpClient,
		baseURL:    driveAPIBaseURL,
	}
}

// tokenSource returns a cached access-token source for the current refresh
// token. A reconnect swaps the refresh token and therefore the source.
func (d *DriveProvider) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if d.oauth == nil || d.oauth.ClientID == "" || d.oauth.ClientSecret == "" {
		return nil, ErrNotConnected
	}

	refresh, err := d.tokens.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	if refresh == "" {
		return nil, ErrNotConnected
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cachedSource == nil || d.cachedFor != refresh {
		refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, d.httpClient)
		d.cachedSource = d.oauth.TokenSource(refreshCtx, &oauth2.Token{RefreshToken: refresh})
		d.cachedFor = refresh
	}
	return d.cachedSource, nil
}

func (d *DriveProvider) do(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	ts, err := d.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("acquire drive access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	token.SetAuthHeader(req)

	return d.httpClient.Do(req)
}

func (d *DriveProvider) Open(ctx context.Context, fileID, rangeHeader string) (*Object, error) {
	header := http.Header{}
	if rangeHeader != "" {
		header.Set("Range", rangeHeader)
	}

	resp, err := d.do(ctx, d.baseURL+"/drive/v3/files/"+url.PathEscape(fileID)+"?alt=media", header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		drain(resp)
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	return &Object{
		Body:          resp.Body,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.Header.Get("Content-Length"),
		ContentRange:  resp.Header.Get("Content-Range"),
		AcceptRanges:  resp.Header.Get("Accept-Ranges"),
	}, nil
}

type driveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	Size        string `json:"size"`
	WebViewLink string `json:"webViewLink"`
}

func (f driveFile) info() FileInfo {
	info := FileInfo{
		ID:          f.ID,
		Title:       strings.TrimSpace(f.Name),
		MimeType:    strings.TrimSpace(f.MimeType),
		WebViewLink: f.WebViewLink,
	}
	if info.Title == "" {
		info.Title = f.ID
	}
	if info.MimeType == "" {
		info.MimeType = defaultMimeType
	}
	if n, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
		info.SizeBytes = &n
	}
	return info
}

func (d *DriveProvider) Stat(ctx context.Context, fileID string) (*FileInfo, error) {
	resp, err := d.do(ctx, d.baseURL+"/drive/v3/files/"+url.PathEscape(fileID)+"?fields="+driveFileFields, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	var file driveFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode drive metadata: %w", err)
	}
	if file.ID == "" {
		file.ID = fileID
	}
	info := file.info()
	return &info, nil
}

func clampPageSize(size int) int {
	if size <= 0 {
		size = config.DriveListDefaultSize
	}
	return min(max(size, 1), config.DriveListMaxSize)
}

func (d *DriveProvider) List(ctx context.Context, opts ListOptions) (*FileList, error) {
	q := "trashed = false"
	if search := strings.TrimSpace(opts.Query); search != "" {
		q += " and name contains '" + strings.ReplaceAll(search, "'", `\'`) + "'"
	}

	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(clampPageSize(opts.PageSize)))
	params.Set("fields", "nextPageToken,files("+driveFileFields+")")
	params.Set("orderBy", "modifiedTime desc")
	params.Set("q", q)
	params.Set("supportsAllDrives", "true")
	params.Set("includeItemsFromAllDrives", "true")
	if opts.PageToken != "" {
		params.Set("pageToken", opts.PageToken)
	}

	resp, err := d.do(ctx, d.baseURL+"/drive/v3/files?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	var body struct {
		NextPageToken string      `json:"nextPageToken"`
		Files         []driveFile `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode drive listing: %w", err)
	}

	list := &FileList{Files: make([]FileInfo, 0, len(body.Files))}
	for _, f := range body.Files {
		list.Files = append(list.Files, f.info())
	}
	if body.NextPageToken != "" {
		list.NextPageToken = &body.NextPageToken
	}
	return list, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
