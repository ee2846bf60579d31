package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

// Driver implements scope.Driver on PostgreSQL. It receives descriptors the
// interceptor has already tenant-filtered and renders them as parameterized
// SQL; it never relaxes a predicate and resolves includes only through the
// tenant-filtered nested query it is handed.
type Driver struct {
	db       *sql.DB
	registry *scope.Registry
	logger   *slog.Logger
}

// NewDriver creates a PostgreSQL-backed store driver.
func NewDriver(db *sql.DB, registry *scope.Registry, logger *slog.Logger) *Driver {
	return &Driver{db: db, registry: registry, logger: logger.With("component", "postgres_driver")}
}

func (d *Driver) Create(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return nil, err
	}

	fields := sortedFields(op.Data)
	cols := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		cols[i] = columnFor(field)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = op.Data[field]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	recs, err := d.queryRecords(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", op.Entity, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("create %s: no row returned", op.Entity)
	}
	return recs[0], nil
}

// CreateMany stages the batch into a temp table with the COPY protocol and
// inserts from there, the same bulk-write path used for high-volume sinks.
func (d *Driver) CreateMany(ctx context.Context, op *scope.Operation) (int64, error) {
	if len(op.Batch) == 0 {
		return 0, nil
	}
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return 0, err
	}

	txn, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	tempTable := table + "_bulk_import"
	_, err = txn.ExecContext(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", tempTable, table))
	if err != nil {
		return 0, err
	}

	// All records in a batch share the field set stamped by the interceptor.
	fields := sortedFields(op.Batch[0])
	cols := make([]string, len(fields))
	for i, field := range fields {
		cols[i] = columnFor(field)
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(tempTable, cols...))
	if err != nil {
		return 0, err
	}
	for _, rec := range op.Batch {
		values := make([]any, len(fields))
		for i, field := range fields {
			values[i] = rec[field]
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			_ = stmt.Close()
			return 0, err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, err
	}
	if err := stmt.Close(); err != nil {
		return 0, err
	}

	colList := strings.Join(cols, ", ")
	res, err := txn.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s", table, colList, colList, tempTable))
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return count, txn.Commit()
}

func (d *Driver) FindUnique(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return nil, err
	}

	var args []any
	where, err := whereClause(op.Where, &args)
	if err != nil {
		return nil, err
	}

	recs, err := d.queryRecords(ctx, fmt.Sprintf("SELECT * FROM %s%s LIMIT 1", table, where), args)
	if err != nil {
		return nil, fmt.Errorf("find unique %s: %w", op.Entity, err)
	}
	if len(recs) == 0 {
		return nil, nil // not found
	}
	return recs[0], nil
}

func (d *Driver) FindMany(ctx context.Context, op *scope.Operation) ([]scope.Record, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return nil, err
	}

	var args []any
	where, err := whereClause(op.Where, &args)
	if err != nil {
		return nil, err
	}

	recs, err := d.queryRecords(ctx, fmt.Sprintf("SELECT * FROM %s%s", table, where), args)
	if err != nil {
		return nil, fmt.Errorf("find many %s: %w", op.Entity, err)
	}

	for _, inc := range op.Includes {
		if err := d.attachInclude(ctx, op, inc, recs); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// attachInclude resolves one relationship through a second, separately
// tenant-filtered query and distributes the children to their parents.
func (d *Driver) attachInclude(ctx context.Context, op *scope.Operation, inc scope.Include, parents []scope.Record) error {
	rel, ok := d.registry.RelationFor(op.Entity, inc.Relation)
	if !ok {
		return fmt.Errorf("postgres: unregistered relation %q on %q", inc.Relation, op.Entity)
	}
	targetTable, err := d.registry.Table(rel.Target)
	if err != nil {
		return err
	}

	for _, parent := range parents {
		parent[inc.Relation] = []scope.Record{}
	}
	if len(parents) == 0 {
		return nil
	}

	parentIDs := make([]string, 0, len(parents))
	for _, parent := range parents {
		parentIDs = append(parentIDs, fmt.Sprint(parent["id"]))
	}

	fkCol := columnFor(rel.ForeignKey)
	args := []any{pq.Array(parentIDs)}
	frag, err := compilePredicate(inc.Where, &args)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)", targetTable, fkCol)
	if frag != "" {
		query += " AND " + frag
	}

	children, err := d.queryRecords(ctx, query, args)
	if err != nil {
		return fmt.Errorf("include %s: %w", inc.Relation, err)
	}

	byParent := make(map[string][]scope.Record)
	for _, child := range children {
		key := fmt.Sprint(child[rel.ForeignKey])
		byParent[key] = append(byParent[key], child)
	}
	for _, parent := range parents {
		if kids, ok := byParent[fmt.Sprint(parent["id"])]; ok {
			parent[inc.Relation] = kids
		}
	}
	return nil
}

func (d *Driver) Count(ctx context.Context, op *scope.Operation) (int64, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return 0, err
	}

	var args []any
	where, err := whereClause(op.Where, &args)
	if err != nil {
		return 0, err
	}

	var n int64
	err = d.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", op.Entity, err)
	}
	return n, nil
}

func (d *Driver) Aggregate(ctx context.Context, op *scope.Operation) (scope.AggregateResult, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return scope.AggregateResult{}, err
	}

	var args []any
	where, err := whereClause(op.Where, &args)
	if err != nil {
		return scope.AggregateResult{}, err
	}

	spec := op.Aggregate
	if spec.GroupBy != "" {
		return d.aggregateGroups(ctx, table, where, args, spec)
	}

	type slot struct {
		kind  string
		field string
	}
	selects := []string{"COUNT(*)"}
	slots := []slot{}
	addSlots := func(kind string, fields []string) {
		for _, field := range fields {
			selects = append(selects, fmt.Sprintf("%s(%s)", strings.ToUpper(kind), columnFor(field)))
			slots = append(slots, slot{kind: kind, field: field})
		}
	}
	addSlots("sum", spec.Sum)
	addSlots("avg", spec.Avg)
	addSlots("min", spec.Min)
	addSlots("max", spec.Max)

	query := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(selects, ", "), table, where)

	dests := make([]any, 1+len(slots))
	var count int64
	dests[0] = &count
	values := make([]sql.NullFloat64, len(slots))
	for i := range values {
		dests[i+1] = &values[i]
	}

	if err := d.db.QueryRowContext(ctx, query, args...).Scan(dests...); err != nil {
		return scope.AggregateResult{}, fmt.Errorf("aggregate %s: %w", op.Entity, err)
	}

	res := scope.AggregateResult{Count: count}
	assign := func(kind string) map[string]float64 {
		out := make(map[string]float64)
		for i, s := range slots {
			if s.kind == kind && values[i].Valid {
				out[s.field] = values[i].Float64
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	res.Sum = assign("sum")
	res.Avg = assign("avg")
	res.Min = assign("min")
	res.Max = assign("max")
	return res, nil
}

func (d *Driver) aggregateGroups(ctx context.Context, table, where string, args []any, spec scope.AggregateSpec) (scope.AggregateResult, error) {
	groupCol := columnFor(spec.GroupBy)
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s%s GROUP BY %s", groupCol, table, where, groupCol)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return scope.AggregateResult{}, err
	}
	defer rows.Close()

	res := scope.AggregateResult{Groups: make(map[string]int64)}
	for rows.Next() {
		var key any
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return scope.AggregateResult{}, err
		}
		res.Groups[fmt.Sprint(normalizeValue(key))] = n
		res.Count += n
	}
	return res, rows.Err()
}

func (d *Driver) Update(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	query, args, err := d.buildUpdate(op, true)
	if err != nil {
		return nil, err
	}

	recs, err := d.queryRecords(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", op.Entity, err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	return recs[0], nil
}

func (d *Driver) UpdateMany(ctx context.Context, op *scope.Operation) (int64, error) {
	query, args, err := d.buildUpdate(op, false)
	if err != nil {
		return 0, err
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update many %s: %w", op.Entity, err)
	}
	return res.RowsAffected()
}

// buildUpdate renders an UPDATE statement. Single-row updates pin the target
// through a subselect so exactly one row is touched, and RETURNING * reports
// whether anything matched at all.
func (d *Driver) buildUpdate(op *scope.Operation, single bool) (string, []any, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return "", nil, err
	}

	fields := sortedFields(op.Data)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("update %s: empty payload", op.Entity)
	}

	var args []any
	sets := make([]string, len(fields))
	for i, field := range fields {
		args = append(args, op.Data[field])
		sets[i] = fmt.Sprintf("%s = $%d", columnFor(field), len(args))
	}

	frag, err := compilePredicate(op.Where, &args)
	if err != nil {
		return "", nil, err
	}

	if single {
		inner := fmt.Sprintf("SELECT id FROM %s", table)
		if frag != "" {
			inner += " WHERE " + frag
		}
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = (%s LIMIT 1) RETURNING *",
			table, strings.Join(sets, ", "), inner)
		return query, args, nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	if frag != "" {
		query += " WHERE " + frag
	}
	return query, args, nil
}

func (d *Driver) Delete(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return nil, err
	}

	var args []any
	frag, err := compilePredicate(op.Where, &args)
	if err != nil {
		return nil, err
	}
	inner := fmt.Sprintf("SELECT id FROM %s", table)
	if frag != "" {
		inner += " WHERE " + frag
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = (%s LIMIT 1) RETURNING *", table, inner)

	recs, err := d.queryRecords(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", op.Entity, err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	return recs[0], nil
}

func (d *Driver) DeleteMany(ctx context.Context, op *scope.Operation) (int64, error) {
	table, err := d.registry.Table(op.Entity)
	if err != nil {
		return 0, err
	}

	var args []any
	where, err := whereClause(op.Where, &args)
	if err != nil {
		return 0, err
	}

	res, err := d.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", table, where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete many %s: %w", op.Entity, err)
	}
	return res.RowsAffected()
}

// queryRecords runs a query and maps every row to a Record keyed by logical
// field names.
func (d *Driver) queryRecords(ctx context.Context, query string, args []any) ([]scope.Record, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]scope.Record, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		rec := make(scope.Record, len(cols))
		for i, col := range cols {
			rec[fieldFor(col)] = normalizeValue(values[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
