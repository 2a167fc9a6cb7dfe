package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/convertey/convertey-api/internal/epub"
	"github.com/convertey/convertey-api/internal/logging"
	"github.com/convertey/convertey-api/internal/textnorm"
)

func (s *Service) convertEPUB(ctx context.Context, src source, target string) ([]byte, error) {
	doc, err := epub.Resolve(src.Data)
	if err != nil {
		return nil, err
	}
	if len(doc.Skipped) > 0 {
		logging.FromContext(ctx).Warn("epub_spine_entries_skipped",
			"title", doc.Title,
			"skipped", doc.Skipped,
			"chapters", len(doc.Chapters),
		)
	}

	bodies := make([]string, len(doc.Chapters))
	for i, ch := range doc.Chapters {
		bodies[i] = textnorm.HTMLToText(ch.RawMarkup)
	}

	switch target {
	case "txt":
		return []byte(strings.Join(trimPages(bodies), "\n\n")), nil
	case "pdf":
		out, err := s.paginator.Render(doc.Title, bodies)
		if err != nil {
			return nil, err
		}
		return out.Data, nil
	}
	return nil, fmt.Errorf("no epub converter for %s", target)
}
