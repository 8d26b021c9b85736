package refresher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/oshokin/odt-sync/internal/logger"
)

var errNoDownloadLink = errors.New("no manual-download link on the vendor page")

// fetchTool resolves the manual-download link on the vendor confirmation page
// and downloads the deployment-tool self-extractor into the temp directory.
func (r *runner) fetchTool(ctx context.Context) error {
	toolURL, err := r.resolveToolURL(ctx)
	if err != nil {
		return err
	}

	fileName := path.Base(toolURL.Path)
	if fileName == "" || fileName == "." || fileName == "/" {
		return fmt.Errorf("no file name in download URL %q", toolURL)
	}

	if err = os.MkdirAll(r.cfg.TempDir, tempDirPermissions); err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}

	destination := filepath.Join(r.cfg.TempDir, fileName)

	logger.InfoKV(ctx, "Downloading deployment tool", "url", toolURL.String(), "destination", destination)

	if err = r.downloadFile(ctx, toolURL.String(), destination); err != nil {
		return err
	}

	r.downloadedTool = destination

	return nil
}

// resolveToolURL fetches the vendor page and extracts the target of the
// anchor whose visible text carries the manual-download marker phrase.
func (r *runner) resolveToolURL(ctx context.Context) (*url.URL, error) {
	pageURL, err := url.Parse(r.cfg.VendorPageURL)
	if err != nil {
		return nil, fmt.Errorf("parse vendor page URL: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build vendor page request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch vendor page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch vendor page: unexpected status %s", resp.Status)
	}

	href, err := findManualDownloadLink(resp.Body)
	if err != nil {
		return nil, err
	}

	target, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("parse download link %q: %w", href, err)
	}

	return pageURL.ResolveReference(target), nil
}

// findManualDownloadLink scans the page for the first anchor whose visible
// text contains the manual-download marker phrase and returns its href.
func findManualDownloadLink(page io.Reader) (string, error) {
	document, err := html.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse vendor page: %w", err)
	}

	var href string

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if node.Type == html.ElementNode && node.Data == "a" {
			if strings.Contains(strings.ToLower(anchorText(node)), downloadMarkerText) {
				for _, attr := range node.Attr {
					if attr.Key == "href" {
						href = attr.Val
						return true
					}
				}
			}
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if walk(child) {
				return true
			}
		}

		return false
	}

	if !walk(document) {
		return "", errNoDownloadLink
	}

	return href, nil
}

// anchorText concatenates the text nodes under an anchor element.
func anchorText(node *html.Node) string {
	var builder strings.Builder

	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}

	collect(node)

	return builder.String()
}

// downloadFile streams the response body to destination. The request is
// bounded by the run context only; tool binaries can take a while.
func (r *runner) downloadFile(ctx context.Context, fileURL, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download tool: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download tool: unexpected status %s", resp.Status)
	}

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}

	if _, err = io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("write downloaded data: %w", err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close destination file: %w", err)
	}

	// The self-extractor is executed by the next stage.
	if err = os.Chmod(destination, stagedToolMode); err != nil {
		return fmt.Errorf("mark download executable: %w", err)
	}

	return nil
}
