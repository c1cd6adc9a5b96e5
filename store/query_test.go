package store

import (
	"testing"
	"time"

	"github.com/misbahzulfiqar/AppwriteBookStore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterDocEquality(t *testing.T) {
	t.Parallel()

	doc := filterDoc(Query{Filters: []Filter{
		{Field: "isPublic", Value: true},
		{Field: "status", Value: models.StatusReading},
	}})

	assert.Equal(t, true, doc["isPublic"])
	assert.Equal(t, models.StatusReading, doc["status"])
}

func TestFilterDocSearchMatchesTitleOrAuthor(t *testing.T) {
	t.Parallel()

	doc := filterDoc(Query{Search: "dune"})

	or, ok := doc["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	re := or[0].(bson.M)["title"].(primitive.Regex)
	assert.Equal(t, "dune", re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestFilterDocSearchEscapesRegexMeta(t *testing.T) {
	t.Parallel()

	doc := filterDoc(Query{Search: "c++ (2nd ed.)"})

	or := doc["$or"].(bson.A)
	re := or[0].(bson.M)["title"].(primitive.Regex)
	assert.Equal(t, `c\+\+ \(2nd ed\.\)`, re.Pattern)
}

func TestFilterDocMissingField(t *testing.T) {
	t.Parallel()

	doc := filterDoc(Query{MissingField: "isPublic"})

	assert.Equal(t, bson.M{"$exists": false}, doc["isPublic"])
}

func TestFindOptionsSortAndPaging(t *testing.T) {
	t.Parallel()

	opts := findOptions(Query{SortField: "createdAt", SortDesc: true, Limit: 10, Offset: 20})

	assert.Equal(t, bson.M{"createdAt": -1}, opts.Sort)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(10), *opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(20), *opts.Skip)
}

func TestSetFieldsOnlyWritesPresentFields(t *testing.T) {
	t.Parallel()

	status := models.StatusReading
	pages := "50"
	set := setFields(models.BookUpdate{Status: &status, PagesRead: &pages})

	assert.Len(t, set, 2)
	assert.Equal(t, models.StatusReading, set["status"])
	assert.Equal(t, "50", set["pagesRead"])
	assert.NotContains(t, set, "rating")
	assert.NotContains(t, set, "title")
}

func TestSetFieldsEmptyUpdate(t *testing.T) {
	t.Parallel()

	set := setFields(models.BookUpdate{})
	assert.Empty(t, set)
}

func TestSetFieldsTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Now()
	set := setFields(models.BookUpdate{LastReadAt: &now, UpdatedAt: &now})
	assert.Equal(t, now, set["lastReadAt"])
	assert.Equal(t, now, set["updatedAt"])
}
