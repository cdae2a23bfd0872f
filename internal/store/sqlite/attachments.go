package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
)

// attachmentTable stores one attachment kind. Comments and reactions share
// the same layout and differ only in the payload column and in how rows for
// a single freet are ordered.
type attachmentTable[P ~string] struct {
	db         *sqlx.DB
	table      string
	payload    string
	freetOrder []string
}

type attachmentRow struct {
	ID           string `db:"id"`
	AuthorID     string `db:"author_id"`
	FreetID      string `db:"freet_id"`
	Payload      string `db:"payload"`
	DateCreated  int64  `db:"date_created"`
	DateModified int64  `db:"date_modified"`
}

func toAttachment[P ~string](r attachmentRow) model.Attachment[P] {
	return model.Attachment[P]{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		FreetID:      r.FreetID,
		Payload:      P(r.Payload),
		DateCreated:  fromUnixNano(r.DateCreated),
		DateModified: fromUnixNano(r.DateModified),
	}
}

func (t *attachmentTable[P]) selectBuilder() sq.SelectBuilder {
	return sq.Select("id", "author_id", "freet_id", t.payload+" AS payload", "date_created", "date_modified").
		From(t.table)
}

func (t *attachmentTable[P]) Create(ctx context.Context, a *model.Attachment[P]) error {
	query, args, err := sq.Insert(t.table).
		Columns("id", "author_id", "freet_id", t.payload, "date_created", "date_modified").
		Values(a.ID, a.AuthorID, a.FreetID, string(a.Payload), a.DateCreated.UnixNano(), a.DateModified.UnixNano()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (t *attachmentTable[P]) Get(ctx context.Context, id string) (model.Attachment[P], error) {
	return t.getOne(ctx, t.selectBuilder().Where(sq.Eq{"id": id}))
}

func (t *attachmentTable[P]) FindByAuthorAndFreet(ctx context.Context, authorID, freetID string) (model.Attachment[P], error) {
	return t.getOne(ctx, t.selectBuilder().
		Where(sq.Eq{"author_id": authorID, "freet_id": freetID}).
		OrderBy("date_modified DESC").
		Limit(1))
}

func (t *attachmentTable[P]) getOne(ctx context.Context, builder sq.SelectBuilder) (model.Attachment[P], error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return model.Attachment[P]{}, err
	}
	var row attachmentRow
	if err := t.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Attachment[P]{}, store.ErrNotFound
		}
		return model.Attachment[P]{}, err
	}
	return toAttachment[P](row), nil
}

func (t *attachmentTable[P]) List(ctx context.Context) ([]model.Attachment[P], error) {
	return t.list(ctx, t.selectBuilder().OrderBy("date_modified DESC", "rowid DESC"))
}

func (t *attachmentTable[P]) ListByFreet(ctx context.Context, freetID string) ([]model.Attachment[P], error) {
	return t.list(ctx, t.selectBuilder().Where(sq.Eq{"freet_id": freetID}).OrderBy(t.freetOrder...))
}

func (t *attachmentTable[P]) ListByAuthor(ctx context.Context, authorID string) ([]model.Attachment[P], error) {
	return t.list(ctx, t.selectBuilder().Where(sq.Eq{"author_id": authorID}).OrderBy("date_modified DESC", "rowid DESC"))
}

func (t *attachmentTable[P]) list(ctx context.Context, builder sq.SelectBuilder) ([]model.Attachment[P], error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []attachmentRow
	if err := t.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Attachment[P], 0, len(rows))
	for _, r := range rows {
		out = append(out, toAttachment[P](r))
	}
	return out, nil
}

func (t *attachmentTable[P]) UpdatePayload(ctx context.Context, id string, payload P, modified time.Time) error {
	query, args, err := sq.Update(t.table).
		Set(t.payload, string(payload)).
		Set("date_modified", modified.UnixNano()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t *attachmentTable[P]) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := sq.Delete(t.table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}
	return execDeleted(ctx, t.db, query, args)
}

func (t *attachmentTable[P]) DeleteByAuthor(ctx context.Context, authorID string) error {
	query, args, err := sq.Delete(t.table).Where(sq.Eq{"author_id": authorID}).ToSql()
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx, query, args...)
	return err
}
