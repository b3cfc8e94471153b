package reader

import (
	"encoding/xml"
	"errors"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"go.uber.org/zap"
)

const ncxMediaType = "application/x-dtbncx+xml"

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// buildTOCHrefMap parses the NCX and returns a map of href to title. The
// first nav point naming a document wins, so a chapter split into several
// anchors keeps its outermost label.
func buildTOCHrefMap(pkg *epub.Rootfile, log *zap.Logger) map[string]string {
	result := make(map[string]string)

	ncxData, err := findAndReadNCX(pkg)
	if err != nil {
		log.Debug("No usable NCX, using document headings", zap.Error(err))
		return result
	}

	var toc ncx
	if err := xml.Unmarshal(ncxData, &toc); err != nil {
		log.Warn("Unable to parse NCX, using document headings", zap.Error(err))
		return result
	}

	add := func(href, title string) {
		if _, exists := result[href]; !exists {
			result[href] = title
		}
	}
	var extract func(points []navPoint)
	extract = func(points []navPoint) {
		for _, np := range points {
			title := strings.TrimSpace(np.Label.Text)
			if title == "" {
				extract(np.Children)
				continue
			}
			href, _, _ := strings.Cut(np.Content.Src, "#")
			add(href, title)
			add(path.Base(href), title)
			extract(np.Children)
		}
	}
	extract(toc.NavMap.NavPoints)

	return result
}

// titleFor looks a spine href up in the NCX map.
func titleFor(titles map[string]string, href string) string {
	if href == "" {
		return ""
	}
	if t, ok := titles[href]; ok {
		return t
	}
	return titles[path.Base(href)]
}

func findAndReadNCX(pkg *epub.Rootfile) ([]byte, error) {
	var ncxItem *epub.Item
	for i := range pkg.Manifest.Items {
		item := &pkg.Manifest.Items[i]
		if item.MediaType == ncxMediaType {
			ncxItem = item
			break
		}
		if ncxItem == nil && strings.HasSuffix(strings.ToLower(item.HREF), ".ncx") {
			ncxItem = item
		}
	}
	if ncxItem == nil {
		return nil, errors.New("no NCX file found in EPUB")
	}
	return readItem(ncxItem)
}
