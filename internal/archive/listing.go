package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ChunkSuffix is the file suffix of catalog chunks in the archive listing.
const ChunkSuffix = ".csv.gz"

// maxListingSize bounds the directory listing read into memory.
const maxListingSize = 64 << 20

// ListSources fetches the HTML directory listing at indexURL and returns the
// absolute URL of every linked chunk, in document order.
func (c *Client) ListSources(ctx context.Context, indexURL string) ([]string, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parsing index URL: %w", err)
	}

	resp, reqCtx, cancel, err := c.get(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxListingSize))
	if err != nil {
		if reqCtx.Err() != nil {
			return nil, classify(reqCtx, err)
		}
		return nil, fmt.Errorf("parsing listing: %w", err)
	}

	sources := chunkLinks(doc, base)
	c.logger.Debug("listed archive sources",
		zap.String("url", indexURL),
		zap.Int("count", len(sources)))
	return sources, nil
}

// chunkLinks walks the parsed document collecting chunk hrefs.
func chunkLinks(doc *html.Node, base *url.URL) []string {
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !strings.HasSuffix(attr.Val, ChunkSuffix) {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil {
					continue
				}
				links = append(links, base.ResolveReference(ref).String())
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}
