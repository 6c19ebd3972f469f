package normalize

import (
	"fmt"

	"github.com/svetlov/news-admin/internal/models"
)

// ForDisplay expands a stored record into the stable shape the dashboard
// edit and preview views rely on: a non-nil image list with every entry
// carrying an id and a kind, non-nil tags, and a content body that renders
// as an object even when empty. The legacy string shapes older records were
// stored in are already absorbed by the lenient model decoders, so the
// worst case here is degrading to empty containers. The input record is not
// mutated.
func ForDisplay(post models.NewsPost) models.NewsPost {
	out := post

	images := make(models.ImageList, len(post.ImagesURL))
	copy(images, post.ImagesURL)
	for i := range images {
		if images[i].ID == "" {
			images[i].ID = fmt.Sprintf("img%d", i)
		}
		if images[i].Kind == "" {
			images[i].Kind = models.DefaultImageKind
		}
	}
	out.ImagesURL = images

	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}
