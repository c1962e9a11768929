package boundary

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// LoadShapefile reads a COD-AB shapefile for one admin level and returns its
// boundary records. Field naming follows the HDX convention:
// ADM<n>_PCODE / ADM<n>_EN for the level itself and ADM<n-1>_PCODE for the
// parent. Records without a pcode are skipped.
func LoadShapefile(path string, level model.AdminLevel, countryISO3 string) ([]model.BoundaryRecord, error) {
	depth := level.Depth()
	if depth < 0 {
		return nil, eris.Errorf("boundary: unknown admin level %q", level)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	pcodeIdx := fieldIndex(reader, fmt.Sprintf("ADM%d_PCODE", depth))
	nameIdx := fieldIndex(reader, fmt.Sprintf("ADM%d_EN", depth))
	if pcodeIdx < 0 {
		return nil, eris.Errorf("boundary: field ADM%d_PCODE not found in %s", depth, path)
	}

	parentIdx := -1
	if depth > 0 {
		parentIdx = fieldIndex(reader, fmt.Sprintf("ADM%d_PCODE", depth-1))
	}

	log := zap.L().With(zap.String("component", "boundary.loader"))

	var records []model.BoundaryRecord
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		pcode := strings.TrimSpace(reader.Attribute(pcodeIdx))
		if pcode == "" {
			skipped++
			continue
		}

		rec := model.BoundaryRecord{
			PCode:       NormalizeCode(pcode),
			Level:       level,
			CountryISO3: strings.ToUpper(countryISO3),
		}
		if nameIdx >= 0 {
			rec.Name = strings.TrimSpace(reader.Attribute(nameIdx))
		}
		if parentIdx >= 0 {
			rec.ParentPCode = NormalizeCode(reader.Attribute(parentIdx))
		}

		geomWKB, err := encodeWKB(shape)
		if err != nil {
			log.Warn("boundary: geometry not encodable, keeping record without geometry",
				zap.String("pcode", rec.PCode),
				zap.Error(err),
			)
		}
		rec.Geom = geomWKB

		records = append(records, rec)
	}

	log.Info("shapefile loaded",
		zap.String("level", string(level)),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, nil
}

// Downloader fetches boundary archives, pacing requests so bulk level-by-level
// pulls stay polite to the hosting service.
type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewDownloader creates a Downloader. A nil client falls back to
// http.DefaultClient; requestsPerSec <= 0 disables pacing.
func NewDownloader(client *http.Client, requestsPerSec float64) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSec), 1)
	}
	return &Downloader{client: client, limiter: limiter}
}

// FetchArchive downloads a ZIP archive to tempDir, extracts it, and returns
// the path of the contained .shp file.
func (d *Downloader) FetchArchive(ctx context.Context, url, tempDir string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "boundary: rate limit wait")
	}

	zipPath := filepath.Join(tempDir, filepath.Base(url))
	zap.L().Info("downloading boundary archive", zap.String("url", url))

	if err := downloadFile(ctx, d.client, url, zipPath); err != nil {
		return "", eris.Wrap(err, "boundary: download archive")
	}

	extractDir := strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "boundary: create extract dir")
	}
	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "boundary: extract archive")
	}

	return findFileByExt(extractDir, ".shp")
}

// downloadFile downloads a URL to a local file.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp.Body); err != nil {
		return eris.Wrap(err, "write file")
	}

	return nil
}

// extractZIP extracts a ZIP archive flat into the destination directory.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
