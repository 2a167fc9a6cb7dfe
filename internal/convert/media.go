package convert

import "context"

// convertMedia transcodes audio and video through the media converter.
func (s *Service) convertMedia(ctx context.Context, src source, target string) ([]byte, error) {
	if target == src.Extension {
		return src.Data, nil
	}
	return s.runExternal(ctx, s.media, src.Data, src.Extension, target)
}

func (s *Service) convertPresentation(ctx context.Context, src source, target string) ([]byte, error) {
	if target == src.Extension {
		return src.Data, nil
	}
	return s.runExternal(ctx, s.office, src.Data, src.Extension, target)
}
