// Downloads and unpacks the GeoLife trajectory archive.
package download

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Fetches datasets into a local directory.
type Downloader struct {
	Client *http.Client
	Logger *zap.Logger
	Progress io.Writer // where the progress bar is drawn; nil hides it
}

// Creates a downloader using the default HTTP client.
func New(logger *zap.Logger, progress io.Writer) Downloader {
	return Downloader{
		Client: http.DefaultClient,
		Logger: logger,
		Progress: progress,
	}
}

// Derives the archive file name from the download URL.
// rawURL: the download URL
// Returns the unescaped base name of the URL path or an error
func ArchiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("No file name in URL %s", rawURL)
	}
	return name, nil
}

// Downloads the archive into dir unless it is already there, then unzips it unless the extracted
// directory already exists.
// ctx: cancels the download
// rawURL: where to download the archive from
// dir: directory the archive is stored and extracted in
// Returns the path of the extracted directory or any errors
func (d Downloader) Fetch(ctx context.Context, rawURL string, dir string) (string, error) {
	name, err := ArchiveName(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	archivePath := filepath.Join(dir, name)
	extractedDir := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name)))

	d.Logger.Info("downloading dataset", zap.String("url", rawURL), zap.String("directory", dir))
	if _, err := os.Stat(archivePath); err == nil {
		d.Logger.Warn("archive already exists, skipping download", zap.String("path", archivePath))
	} else {
		d.Logger.Debug("output file", zap.String("path", archivePath))
		if err := d.downloadFile(ctx, archivePath, rawURL); err != nil {
			return "", err
		}
		d.Logger.Debug("download complete")
	}

	if info, err := os.Stat(extractedDir); err == nil && info.IsDir() {
		d.Logger.Warn("archive has already been unzipped, skipping unzip", zap.String("path", extractedDir))
		return extractedDir, nil
	}

	d.Logger.Debug("unzipping archive", zap.String("archive", archivePath), zap.String("into", dir))
	if err := Unzip(archivePath, dir); err != nil {
		return "", err
	}
	return extractedDir, nil
}

// Downloads a file from a URL. A partial file is removed on failure.
// filePath: file path where file should be stored locally
// rawURL: the URL to download file from
// Returns any errors
func (d Downloader) downloadFile(ctx context.Context, filePath string, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s failed: %s", rawURL, resp.Status)
	}

	out, err := os.Create(filePath)
	if err != nil {
		return err
	}

	progress := d.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("downloading "+filepath.Base(filePath)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100_000_000),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(progress) }),
	)

	_, err = io.Copy(io.MultiWriter(out, bar), resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return err
	}
	return nil
}

// Unzips a zip file. Entries that would land outside dest are rejected.
// src: the path to the zip file
// dest: where the contents of the unzipped file should be placed
// Returns any errors
func Unzip(src string, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		rel, err := filepath.Rel(dest, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %s escapes %s", f.Name, dest)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	file, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, rc); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
