package dictionary

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// EnsureDictionary makes sure a dictionary file exists at path. When it is
// missing and url is set, the file is downloaded. Plain JSON, gzip and
// tar.gz downloads are accepted; for archives the first .json member is used.
func EnsureDictionary(ctx context.Context, client *http.Client, path, url string, logger zerolog.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if url == "" {
		return fmt.Errorf("dictionary not found at %s and no download url configured", path)
	}

	logger.Info().Str("path", path).Str("url", url).Msg("Dictionary not found, downloading")
	if client == nil {
		client = http.DefaultClient
	}
	return download(ctx, client, url, path)
}

func download(ctx context.Context, client *http.Client, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "wordcard-cli")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	body := bufio.NewReader(resp.Body)
	src, err := unpack(body)
	if err != nil {
		return err
	}

	// Write to a temp file first so an interrupted download never leaves a
	// truncated dictionary behind.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".dict-*.json")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}

// unpack returns the JSON payload of a plain, gzip or tar.gz stream.
func unpack(r *bufio.Reader) (io.Reader, error) {
	magic, err := r.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		return r, nil
	}

	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	inner := bufio.NewReader(gzReader)

	// A tar header carries "ustar" at offset 257.
	header, _ := inner.Peek(262)
	if len(header) < 262 || string(header[257:262]) != "ustar" {
		return inner, nil
	}

	tarReader := tar.NewReader(inner)
	for {
		hdr, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && strings.HasSuffix(hdr.Name, ".json") {
			return tarReader, nil
		}
	}
	return nil, fmt.Errorf("no json file found in downloaded archive")
}
