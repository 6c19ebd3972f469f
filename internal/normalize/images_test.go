package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/svetlov/news-admin/internal/models"
	"github.com/svetlov/news-admin/internal/normalize"
)

func TestNormalizeImagesNil(t *testing.T) {
	refs, warnings := normalize.NormalizeImages(nil)
	require.Empty(t, refs)
	require.Empty(t, warnings)
}

func TestNormalizeImagesObjectList(t *testing.T) {
	raw := decode(t, `[
		{"id": "img0", "url": "https://cdn.example.com/a.jpg", "caption": "first"},
		{"url": "https://cdn.example.com/b.jpg", "type": "diagram"}
	]`)

	refs, warnings := normalize.NormalizeImages(raw)
	require.Empty(t, warnings)
	require.Equal(t, []models.ImageRef{
		{ID: "img0", URL: "https://cdn.example.com/a.jpg", Caption: "first", Kind: "figure"},
		{URL: "https://cdn.example.com/b.jpg", Kind: "diagram"},
	}, refs)
}

func TestNormalizeImagesStringifiedList(t *testing.T) {
	refs, warnings := normalize.NormalizeImages(`[{"url": "https://cdn.example.com/a.jpg"}]`)
	require.Empty(t, warnings)
	require.Len(t, refs, 1)
	require.Equal(t, "https://cdn.example.com/a.jpg", refs[0].URL)
	require.Equal(t, "figure", refs[0].Kind)
}

func TestNormalizeImagesNewlineSeparatedURLs(t *testing.T) {
	raw := "https://cdn.example.com/a.jpg\n\nhttps://cdn.example.com/b.jpg\n"

	refs, warnings := normalize.NormalizeImages(raw)
	require.Empty(t, warnings)
	require.Equal(t, []models.ImageRef{
		{URL: "https://cdn.example.com/a.jpg", Kind: "figure"},
		{URL: "https://cdn.example.com/b.jpg", Kind: "figure"},
	}, refs)
}

func TestNormalizeImagesRepairsSingleQuotedLiteral(t *testing.T) {
	refs, warnings := normalize.NormalizeImages(`{url: 'https://cdn.example.com/a.jpg', caption: 'fixed'}`)
	require.Empty(t, warnings)
	require.Equal(t, []models.ImageRef{
		{URL: "https://cdn.example.com/a.jpg", Caption: "fixed", Kind: "figure"},
	}, refs)
}

func TestNormalizeImagesMalformedStringDegrades(t *testing.T) {
	refs, warnings := normalize.NormalizeImages(`{not valid`)
	require.Empty(t, refs)
	require.Len(t, warnings, 1)
	require.Equal(t, "imagesUrl", warnings[0].Field)
}

func TestNormalizeImagesListDropsUnparseableStrings(t *testing.T) {
	raw := []any{
		`{"url": "https://cdn.example.com/a.jpg"}`,
		"https://cdn.example.com/not-an-object.jpg",
	}

	refs, warnings := normalize.NormalizeImages(raw)
	require.Len(t, refs, 1)
	require.Equal(t, "https://cdn.example.com/a.jpg", refs[0].URL)
	require.Len(t, warnings, 1)
}

func TestNormalizeImagesRetainsEmptyURLEntries(t *testing.T) {
	raw := decode(t, `[{"caption": "no url yet"}]`)

	refs, warnings := normalize.NormalizeImages(raw)
	require.Empty(t, warnings)
	require.Equal(t, []models.ImageRef{{Caption: "no url yet", Kind: "figure"}}, refs)
}

func TestNormalizeImagesSingleObjectWrapped(t *testing.T) {
	raw := decode(t, `{"url": "https://cdn.example.com/a.jpg"}`)

	refs, warnings := normalize.NormalizeImages(raw)
	require.Empty(t, warnings)
	require.Len(t, refs, 1)
	require.Equal(t, "https://cdn.example.com/a.jpg", refs[0].URL)
}

func TestNormalizeImagesIdempotentOnCanonicalList(t *testing.T) {
	raw := decode(t, `[{"id": "img0", "url": "https://cdn.example.com/a.jpg", "caption": "c", "type": "figure"}]`)

	once, _ := normalize.NormalizeImages(raw)

	again := make([]any, 0, len(once))
	for _, ref := range once {
		again = append(again, map[string]any{
			"id": ref.ID, "url": ref.URL, "caption": ref.Caption, "type": ref.Kind,
		})
	}
	twice, _ := normalize.NormalizeImages(again)
	require.Equal(t, once, twice)
}

func TestNormalizeImagesOrderFollowsInput(t *testing.T) {
	raw := decode(t, `[{"url": "u3"}, {"url": "u1"}, {"url": "u2"}]`)

	refs, _ := normalize.NormalizeImages(raw)
	require.Equal(t, []string{"u3", "u1", "u2"}, []string{refs[0].URL, refs[1].URL, refs[2].URL})
}
