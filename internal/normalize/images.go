package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/svetlov/news-admin/internal/models"
)

// ParseWarning records a sub-field that could not be parsed and was
// defaulted instead. Malformed optional fields never block ingestion, but
// the fallback has to be observable in logs and tests.
type ParseWarning struct {
	Field  string
	Reason string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Reason)
}

// bareKeyPattern quotes unquoted object keys during literal repair, e.g.
// {id: 'img0'} -> {"id": 'img0'}.
var bareKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

const maxImageRecursion = 3

// NormalizeImages coerces any accepted representation of a post's images
// into the canonical ordered reference list. Output order always follows
// input order. Malformed input degrades to an empty list plus warnings; it
// never fails.
func NormalizeImages(raw any) ([]models.ImageRef, []ParseWarning) {
	return normalizeImages(raw, 0)
}

func normalizeImages(raw any, depth int) ([]models.ImageRef, []ParseWarning) {
	if depth > maxImageRecursion {
		return nil, []ParseWarning{{Field: "imagesUrl", Reason: "image payload nested too deeply"}}
	}

	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return normalizeImageString(v, depth)
	case []any:
		return normalizeImageList(v)
	default:
		if obj, ok := asObject(raw); ok {
			return []models.ImageRef{projectImage(obj)}, nil
		}
		return nil, []ParseWarning{{
			Field:  "imagesUrl",
			Reason: fmt.Sprintf("unsupported image payload type %T", raw),
		}}
	}
}

func normalizeImageString(s string, depth int) ([]models.ImageRef, []ParseWarning) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}

	if parsed, err := DecodeValue([]byte(trimmed)); err == nil {
		return normalizeImages(parsed, depth+1)
	}

	if strings.Contains(trimmed, "\n") {
		refs := make([]models.ImageRef, 0)
		for _, line := range strings.Split(trimmed, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			refs = append(refs, models.ImageRef{URL: line, Kind: models.DefaultImageKind})
		}
		return refs, nil
	}

	if parsed, err := DecodeValue([]byte(repairJSONLiteral(trimmed))); err == nil {
		return normalizeImages(parsed, depth+1)
	}
	return nil, []ParseWarning{{Field: "imagesUrl", Reason: "unparseable image literal"}}
}

func normalizeImageList(items []any) ([]models.ImageRef, []ParseWarning) {
	refs := make([]models.ImageRef, 0, len(items))
	var warnings []ParseWarning

	for i, item := range items {
		switch elem := item.(type) {
		case string:
			obj, ok := parseImageElement(elem)
			if !ok {
				// Documented lossy behavior: string elements that are not
				// parseable image objects are dropped.
				warnings = append(warnings, ParseWarning{
					Field:  "imagesUrl",
					Reason: fmt.Sprintf("dropped unparseable element %d", i),
				})
				continue
			}
			refs = append(refs, projectImage(obj))
		default:
			if obj, ok := asObject(item); ok {
				refs = append(refs, projectImage(obj))
				continue
			}
			warnings = append(warnings, ParseWarning{
				Field:  "imagesUrl",
				Reason: fmt.Sprintf("dropped element %d of type %T", i, item),
			})
		}
	}
	return refs, warnings
}

func parseImageElement(s string) (*Object, bool) {
	for _, candidate := range []string{s, repairJSONLiteral(s)} {
		parsed, err := DecodeValue([]byte(candidate))
		if err != nil {
			continue
		}
		if obj, ok := asObject(parsed); ok {
			return obj, true
		}
	}
	return nil, false
}

// projectImage maps a loosely shaped object onto the canonical reference.
// A missing url is retained as an empty string rather than dropping the
// entry.
func projectImage(obj *Object) models.ImageRef {
	ref := models.ImageRef{Kind: models.DefaultImageKind}
	if s, ok := stringValue(obj, "id"); ok {
		ref.ID = s
	}
	if s, ok := stringValue(obj, "url"); ok {
		ref.URL = s
	}
	if s, ok := stringValue(obj, "caption"); ok {
		ref.Caption = s
	}
	if s, ok := stringValue(obj, "type"); ok && s != "" {
		ref.Kind = s
	}
	return ref
}

// repairJSONLiteral applies the lenient fixes seen in upstream feeds:
// single-quoted strings and bare object keys.
func repairJSONLiteral(s string) string {
	repaired := strings.ReplaceAll(s, "'", `"`)
	return bareKeyPattern.ReplaceAllString(repaired, `$1"$2":`)
}
