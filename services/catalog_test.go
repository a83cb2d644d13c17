package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/wizard"
)

func TestCategoryFor(t *testing.T) {
	cases := map[string]string{
		"holiday.JPG":     "Images",
		"report.pdf":      "Documents",
		"song.m4a":        "Audio",
		"clip.mkv":        "Video",
		"backup.tar.gz":   "Archives",
		"budget.xlsx":     "Spreadsheets",
		"deck.pptx":       "Presentations",
		"main.py":         "Code",
		"novel.epub":      "Ebooks",
		"README":          CategoryOther,
		"":                CategoryOther,
		"weird.extension": CategoryOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, CategoryFor(name), name)
	}
}

func TestAddUploadDedupesAndCredits(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.User{UserID: 10, LastReset: "2026-10-15"}).Error)
	catalog := NewCatalog(db, 50*1024*1024)

	up := Upload{Type: models.ContentFile, FileID: "f1", FileUniqueID: "u1", FileName: "notes.pdf", FileSize: 1024, UploaderID: 10}
	item, err := catalog.AddUpload(ctx, up)
	require.NoError(t, err)
	assert.Equal(t, "Documents", item.Category)
	assert.NotEmpty(t, item.ID)

	// same file re-sent with a different file_id
	up.FileID = "f1-again"
	_, err = catalog.AddUpload(ctx, up)
	assert.ErrorIs(t, err, ErrDuplicateContent)

	var count int64
	require.NoError(t, db.Model(&models.Content{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var u models.User
	require.NoError(t, db.First(&u, "user_id = ?", 10).Error)
	assert.Equal(t, 1, u.UploadedFiles)
	assert.Equal(t, 1, u.UploadedCount())
}

func TestAddUploadRejectsLargeFiles(t *testing.T) {
	catalog := NewCatalog(newTestDB(t), 1024)
	_, err := catalog.AddUpload(context.Background(), Upload{Type: models.ContentFile, FileID: "f", FileUniqueID: "u", FileSize: 2048})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// videos are not size-checked
	_, err = catalog.AddUpload(context.Background(), Upload{Type: models.ContentVideo, FileID: "v", FileUniqueID: "uv", FileSize: 2048})
	assert.NoError(t, err)
}

func TestRandomAndEmpty(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newTestDB(t), 0)

	_, err := catalog.Random(ctx, models.ContentVideo)
	assert.ErrorIs(t, err, ErrCatalogEmpty)

	for _, id := range []string{"a", "b", "c"} {
		_, err := catalog.AddUpload(ctx, Upload{Type: models.ContentVideo, FileID: id, FileUniqueID: "u" + id})
		require.NoError(t, err)
	}
	seen := map[string]bool{}
	for i := 0; i < 60; i++ {
		item, err := catalog.Random(ctx, models.ContentVideo)
		require.NoError(t, err)
		seen[item.FileID] = true
	}
	assert.Len(t, seen, 3)

	_, err = catalog.Random(ctx, models.ContentFile)
	assert.ErrorIs(t, err, ErrCatalogEmpty)
}

func TestTrendingFlags(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newTestDB(t), 0)

	existing, err := catalog.AddUpload(ctx, Upload{Type: models.ContentVideo, FileID: "v1", FileUniqueID: "u1"})
	require.NoError(t, err)

	marked, err := catalog.MarkTrending(ctx, Upload{Type: models.ContentVideo, FileID: "v1b", FileUniqueID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, marked.ID)
	assert.True(t, marked.Trending)

	for _, id := range []string{"v2", "v3", "v4"} {
		_, err := catalog.MarkTrending(ctx, Upload{Type: models.ContentVideo, FileID: id, FileUniqueID: "u" + id})
		require.NoError(t, err)
	}
	items, err := catalog.Trending(ctx, models.ContentVideo, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	n, err := catalog.ClearTrending(ctx, models.ContentVideo)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	items, err = catalog.Trending(ctx, models.ContentVideo, 3)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCategoriesAndByCategory(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newTestDB(t), 0)
	for i, name := range []string{"a.pdf", "b.pdf", "c.zip", "d.mp3"} {
		_, err := catalog.AddUpload(ctx, Upload{Type: models.ContentFile, FileID: name, FileUniqueID: name, FileName: name, FileSize: int64(i)})
		require.NoError(t, err)
	}
	cats, err := catalog.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{"Archives", 1}, {"Audio", 1}, {"Documents", 2}}, cats)

	docs, err := catalog.ByCategory(ctx, "Documents", 5)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestCreateTitleSeries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	catalog := NewCatalog(db, 0)

	title := wizard.Title{
		Type:        wizard.FlowSeries,
		Name:        "Show",
		ThumbnailID: "thumb",
		Seasons: []wizard.Season{
			{Name: "S1", Episodes: []wizard.Episode{{Name: "E1", URL: "https://e/1"}, {Name: "E2", URL: "https://e/2"}}},
			{Name: "S2", Episodes: []wizard.Episode{{Name: "E1", URL: "https://e/3"}, {Name: "E2", URL: "https://e/4"}}},
		},
	}
	item, err := catalog.CreateTitle(ctx, title, 99)
	require.NoError(t, err)
	assert.Equal(t, models.ContentSeries, item.Type)

	got, err := catalog.Get(ctx, item.ID)
	require.NoError(t, err)
	var meta models.TitleMetadata
	require.NoError(t, json.Unmarshal([]byte(got.Metadata), &meta))
	require.Len(t, meta.Seasons, 2)
	assert.Len(t, meta.Seasons[0].Episodes, 2)
	assert.Len(t, meta.Seasons[1].Episodes, 2)
	assert.Equal(t, "thumb", meta.ThumbnailID)

	// two titles never collide on the synthetic unique id
	_, err = catalog.CreateTitle(ctx, wizard.Title{Type: wizard.FlowMovie, Name: "M", ThumbnailID: "t", URL: "http://m"}, 99)
	require.NoError(t, err)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newTestDB(t), 0)
	_, err := catalog.AddUpload(ctx, Upload{Type: models.ContentVideo, FileID: "v", FileUniqueID: "v"})
	require.NoError(t, err)
	_, err = catalog.MarkTrending(ctx, Upload{Type: models.ContentVideo, FileID: "t", FileUniqueID: "t"})
	require.NoError(t, err)
	_, err = catalog.AddUpload(ctx, Upload{Type: models.ContentFile, FileID: "f", FileUniqueID: "f", FileName: "x.pdf"})
	require.NoError(t, err)

	items, total, err := catalog.List(ctx, ListFilter{Type: models.ContentVideo})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	yes := true
	_, total, err = catalog.List(ctx, ListFilter{Trending: &yes})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = catalog.List(ctx, ListFilter{Category: "Documents"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	items, total, err = catalog.List(ctx, ListFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 1)

	_, err = catalog.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrContentNotFound)
}
