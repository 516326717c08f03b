// Package search keeps an in-memory full-text index of the transcript.
// The index is fed as a transcript view, so it always mirrors what is displayed.
package search

import (
	"chat-panel/domain"
	"chat-panel/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	blugesearch "github.com/blugelabs/bluge/search"
)

const (
	idField        = "_id"
	contentField   = "content"
	authorField    = "author"
	displayField   = "display"
	userField      = "user_id"
	timestampField = "timestamp"
)

// Hit is one matching message, newest first.
type Hit struct {
	ID        string
	UserID    string
	Author    string
	Content   string
	CreatedAt time.Time
}

type Index struct {
	log    *slog.Logger
	writer *bluge.Writer
}

func NewIndex(log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &Index{log: log, writer: writer}, nil
}

// Render indexes or re-indexes the entry under its message id.
func (i *Index) Render(entry domain.Entry) {
	author := entry.DisplayName
	if author == "" {
		author = entry.UserID
	}
	doc := bluge.NewDocument(entry.ID).
		AddField(bluge.NewTextField(contentField, entry.Content).StoreValue()).
		AddField(bluge.NewKeywordField(authorField, strings.ToLower(author))).
		AddField(bluge.NewStoredOnlyField(displayField, []byte(author))).
		AddField(bluge.NewKeywordField(userField, entry.UserID).StoreValue()).
		AddField(bluge.NewDateTimeField(timestampField, entry.CreatedAt).StoreValue().Sortable())
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		i.log.Warn("Unable to index message", "id", entry.ID, "error", err)
	}
}

func (i *Index) Remove(id string) {
	if err := i.writer.Delete(bluge.Identifier(id)); err != nil {
		i.log.Warn("Unable to drop message from index", "id", id, "error", err)
	}
}

// Search runs the query against the current snapshot of the index.
func (i *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	if q.Empty() {
		return nil, fmt.Errorf("%w: nothing to search for", errors.ErrValidation)
	}
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery()
	if q.Terms != "" {
		query.AddMust(bluge.NewMatchQuery(q.Terms).
			SetField(contentField).
			SetOperator(bluge.MatchQueryOperatorAnd))
	}
	if q.Author != "" {
		query.AddMust(bluge.NewTermQuery(strings.ToLower(q.Author)).SetField(authorField))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	request := bluge.NewTopNSearch(limit, query).SortBy([]string{"-" + timestampField})
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	var hits []Hit
	match, err := matches.Next()
	for err == nil && match != nil {
		hits = append(hits, i.toHit(match))
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	i.log.Debug("Search done", "terms", q.Terms, "author", q.Author, "hits", len(hits))
	return hits, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

func (i *Index) toHit(match *blugesearch.DocumentMatch) Hit {
	var hit Hit
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case idField:
			hit.ID = string(value)
		case contentField:
			hit.Content = string(value)
		case displayField:
			hit.Author = string(value)
		case userField:
			hit.UserID = string(value)
		case timestampField:
			if at, err := bluge.DecodeDateTime(value); err == nil {
				hit.CreatedAt = at
			}
		}
		return true
	})
	if err != nil {
		i.log.Debug("Unable to read stored fields", "error", err)
	}
	return hit
}
