package store

import (
	"context"
	"regexp"

	"github.com/misbahzulfiqar/AppwriteBookStore/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Filter is a single equality constraint. Multiple filters in a Query are
// combined with AND.
type Filter struct {
	Field string
	Value interface{}
}

// Query describes a list-documents request: equality filters, an optional
// case-insensitive search over title and author, paging, and a sort.
type Query struct {
	Filters      []Filter
	Search       string
	MissingField string // match documents where this field is absent
	Limit        int64
	Offset       int64
	SortField    string
	SortDesc     bool
}

// filterDoc translates a Query's constraints into a Mongo filter document.
func filterDoc(q Query) bson.M {
	m := bson.M{}
	for _, f := range q.Filters {
		m[f.Field] = f.Value
	}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		m["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"author": re},
		}
	}
	if q.MissingField != "" {
		m[q.MissingField] = bson.M{"$exists": false}
	}
	return m
}

// findOptions translates a Query's paging and sort into find options.
func findOptions(q Query) *options.FindOptions {
	opts := options.Find()
	if q.SortField != "" {
		dir := 1
		if q.SortDesc {
			dir = -1
		}
		opts.SetSort(bson.M{q.SortField: dir})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Offset > 0 {
		opts.SetSkip(q.Offset)
	}
	return opts
}

func (db *DB) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if _, err := db.Books().InsertOne(ctx, book, options.InsertOne()); err != nil {
		return nil, errors.Wrap(err, "insert book")
	}
	return book, nil
}

func (db *DB) BookByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find book")
	}
	return &book, nil
}

func (db *DB) ListBooks(ctx context.Context, q Query) ([]models.Book, error) {
	cur, err := db.Books().Find(ctx, filterDoc(q), findOptions(q))
	if err != nil {
		return nil, errors.Wrap(err, "list books")
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, errors.Wrap(err, "decode books")
	}
	return books, nil
}

// setFields builds the $set document from a partial update. Only non-nil
// fields are written.
func setFields(upd models.BookUpdate) bson.M {
	set := bson.M{}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Author != nil {
		set["author"] = *upd.Author
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.PagesRead != nil {
		set["pagesRead"] = *upd.PagesRead
	}
	if upd.TotalPages != nil {
		set["totalPages"] = *upd.TotalPages
	}
	if upd.Rating != nil {
		set["rating"] = *upd.Rating
	}
	if upd.CoverImageID != nil {
		set["coverImageId"] = *upd.CoverImageID
	}
	if upd.LastReadPage != nil {
		set["lastReadPage"] = *upd.LastReadPage
	}
	if upd.IsPublic != nil {
		set["isPublic"] = *upd.IsPublic
	}
	if upd.LastReadAt != nil {
		set["lastReadAt"] = *upd.LastReadAt
	}
	if upd.UpdatedAt != nil {
		set["updatedAt"] = *upd.UpdatedAt
	}
	return set
}

// UpdateBook applies a partial update and returns the updated document.
func (db *DB) UpdateBook(ctx context.Context, id string, upd models.BookUpdate) (*models.Book, error) {
	set := setFields(upd)
	if len(set) == 0 {
		return db.BookByID(ctx, id)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var book models.Book
	err := db.Books().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "update book")
	}
	return &book, nil
}

func (db *DB) DeleteBook(ctx context.Context, id string) error {
	res, err := db.Books().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete book")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
