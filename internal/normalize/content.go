package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/svetlov/news-admin/internal/apperr"
	"github.com/svetlov/news-admin/internal/models"
)

var (
	paragraphBreak = regexp.MustCompile(`\n{2,}`)
	// Inline marker referencing an image-list entry by position, e.g.
	// **image_image0**. The image is represented by its list entry, not by
	// inline text, so a resolvable marker is removed.
	imagePlaceholder = regexp.MustCompile(`\*\*image_image(\d+)\*\*`)
)

// NormalizeContent coerces any accepted representation of a post's body
// into the canonical ordered mapping. An already-canonical mapping passes
// through unchanged. Strings are split into paragraphs on blank lines;
// string lists are taken one paragraph per element. When existing is
// non-empty, freshly split paragraphs re-use its key sequence positionally
// so minor edits keep stable paragraph identity.
func NormalizeContent(raw any, existing models.ContentBody, images []models.ImageRef) (models.ContentBody, error) {
	if raw == nil {
		return models.ContentBody{}, apperr.Validation("content", "content must be a non-empty body")
	}

	if obj, ok := asObject(raw); ok {
		return canonicalBody(obj)
	}

	var paragraphs []string
	switch v := raw.(type) {
	case string:
		paragraphs = splitParagraphs(v)
	case []any:
		for _, elem := range v {
			text, ok := elem.(string)
			if !ok {
				return models.ContentBody{}, apperr.Validation("content", "content list must contain only strings")
			}
			paragraphs = append(paragraphs, strings.TrimSpace(text))
		}
	default:
		return models.ContentBody{}, apperr.Validation("content", fmt.Sprintf("unsupported content shape %T", raw))
	}

	paragraphs = resolvePlaceholders(paragraphs, images)

	body := models.NewContentBody()
	existingKeys := existing.Keys()
	for i, text := range paragraphs {
		key := fmt.Sprintf("p%d", i)
		if i < len(existingKeys) {
			key = existingKeys[i]
		}
		body.Set(key, text)
	}

	if body.Len() == 0 {
		return models.ContentBody{}, apperr.Validation("content", "content must be a non-empty body")
	}
	return body, nil
}

// canonicalBody validates the preferred input shape: an ordered mapping of
// non-empty strings. It is an identity transform on valid input.
func canonicalBody(obj *Object) (models.ContentBody, error) {
	if obj.Len() == 0 {
		return models.ContentBody{}, apperr.Validation("content", "content must be a non-empty body")
	}
	body := models.NewContentBody()
	for _, key := range obj.Keys() {
		val, _ := obj.Get(key)
		text, ok := val.(string)
		if !ok {
			return models.ContentBody{}, apperr.Validation("content", fmt.Sprintf("paragraph %q is not a string", key))
		}
		if strings.TrimSpace(text) == "" {
			return models.ContentBody{}, apperr.Validation("content", fmt.Sprintf("paragraph %q is empty", key))
		}
		body.Set(key, text)
	}
	return body, nil
}

func splitParagraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	parts := paragraphBreak.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolvePlaceholders removes markers whose index exists in the image list
// and leaves unresolvable markers untouched. Paragraphs emptied by removal
// are dropped.
func resolvePlaceholders(paragraphs []string, images []models.ImageRef) []string {
	out := make([]string, 0, len(paragraphs))
	for _, text := range paragraphs {
		replaced := imagePlaceholder.ReplaceAllStringFunc(text, func(marker string) string {
			digits := imagePlaceholder.FindStringSubmatch(marker)[1]
			idx, err := strconv.Atoi(digits)
			if err != nil || idx >= len(images) {
				return marker
			}
			return ""
		})
		if strings.TrimSpace(replaced) == "" {
			continue
		}
		out = append(out, replaced)
	}
	return out
}
