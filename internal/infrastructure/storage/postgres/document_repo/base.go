// Package document_repo provides PostgreSQL implementations of the document
// repositories. Every header query is filtered by the caller's company and
// business unit; a row of another tenant is reported as not found.
package document_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain"
	"stockflow/internal/infrastructure/storage/postgres"
)

const uniqueViolation = "23505"

// documentTable holds the shared CRUD of a document header table. T is the
// document struct; its "db" tags define the columns.
type documentTable[T any] struct {
	txManager *postgres.TxManager
	table     string
	entity    string
	columns   []string
	// softDelete, when set, hides rows where this column is not null.
	softDelete string
}

func newDocumentTable[T any](txManager *postgres.TxManager, table, entity string) documentTable[T] {
	return documentTable[T]{
		txManager: txManager,
		table:     table,
		entity:    entity,
		columns:   postgres.ExtractDBColumns[T](),
	}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (t documentTable[T]) querier(ctx context.Context) postgres.Querier {
	return t.txManager.GetQuerier(ctx)
}

// insert writes the tagged columns of doc.
func (t documentTable[T]) insert(ctx context.Context, doc *T) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags on %s", t.entity)
	}

	sql, args, err := builder().Insert(t.table).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.querier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.NewDuplicate(t.entity, pgErr.ConstraintName, fmt.Sprint(data["number"]))
		}
		return fmt.Errorf("insert %s: %w", t.table, err)
	}
	return nil
}

// scoped selects the headers visible to scope.
func (t documentTable[T]) scoped(scope tenant.Scope) squirrel.SelectBuilder {
	q := builder().
		Select(t.columns...).
		From(t.table).
		Where(squirrel.Eq{"company_id": scope.CompanyID, "business_unit_id": scope.BusinessUnitID})
	if t.softDelete != "" {
		q = q.Where(squirrel.Eq{t.softDelete: nil})
	}
	return q
}

// get loads one header; lock adds FOR UPDATE.
func (t documentTable[T]) get(ctx context.Context, scope tenant.Scope, docID id.ID, lock bool) (*T, error) {
	q := t.scoped(scope).Where(squirrel.Eq{"id": docID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	doc := new(T)
	if err := pgxscan.Get(ctx, t.querier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(t.entity, docID)
		}
		return nil, fmt.Errorf("get %s: %w", t.entity, err)
	}
	return doc, nil
}

// list pages through the headers visible to scope. narrow adds
// document-specific predicates.
func (t documentTable[T]) list(
	ctx context.Context,
	scope tenant.Scope,
	filter domain.ListFilter,
	narrow func(squirrel.SelectBuilder) squirrel.SelectBuilder,
) (domain.ListResult[*T], error) {
	result := domain.ListResult[*T]{Limit: filter.Limit, Offset: filter.Offset, Items: []*T{}}

	q := t.scoped(scope)
	if len(filter.Statuses) > 0 {
		q = q.Where(squirrel.Eq{"status": filter.Statuses})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Like{"number": filter.Search + "%"})
	}
	if narrow != nil {
		q = narrow(q)
	}

	countSQL, countArgs, err := builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := t.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", t.table, err)
	}

	q = q.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, t.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", t.table, err)
	}
	return result, nil
}

// conditionalUpdate applies set only if the row still carries the expected
// status and version, bumping the version. It returns domain.ErrStale when
// nothing matched.
func (t documentTable[T]) conditionalUpdate(ctx context.Context, companyID, docID id.ID, status string, version int, set map[string]any) error {
	sql, args, err := builder().
		Update(t.table).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": docID, "company_id": companyID, "status": status, "version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := t.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.table, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStale
	}
	return nil
}

// replaceLines rewrites the child rows of a document.
func replaceLines(ctx context.Context, q postgres.Querier, table, parentColumn string, parentID id.ID, columns []string, rows [][]any) error {
	del, args, err := builder().Delete(table).Where(squirrel.Eq{parentColumn: parentID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := q.Exec(ctx, del, args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil
	}

	ins := builder().Insert(table).Columns(columns...)
	for _, row := range rows {
		ins = ins.Values(row...)
	}
	sql, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// selectLines scans child rows ordered by line number.
func selectLines[L any](ctx context.Context, q postgres.Querier, table, parentColumn string, parentID id.ID, columns []string) ([]L, error) {
	sql, args, err := builder().
		Select(columns...).
		From(table).
		Where(squirrel.Eq{parentColumn: parentID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := []L{}
	if err := pgxscan.Select(ctx, q, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return lines, nil
}
