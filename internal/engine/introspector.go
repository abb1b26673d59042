package engine

import (
	"context"
	"encoding/json"

	"github.com/lychee-technology/sqlsandbox"
)

// Introspector runs the five fixed catalog queries that make up the
// external schema-introspection contract and assembles them into
// structured schema metadata. DatabaseInfo is always produced fresh; it is
// never cached.
type Introspector struct{}

// NewIntrospector builds an Introspector. It carries no state: every query
// is reissued against the pool it is given.
func NewIntrospector() *Introspector { return &Introspector{} }

// Introspect runs the five catalog queries against pool and assembles a
// sandbox.DatabaseInfo.
func (i *Introspector) Introspect(ctx context.Context, pool dbPool) (sandbox.DatabaseInfo, error) {
	var info sandbox.DatabaseInfo
	var err error

	if info.Tables, err = queryTables(ctx, pool); err != nil {
		return sandbox.DatabaseInfo{}, err
	}
	if info.Constraints, err = queryConstraints(ctx, pool); err != nil {
		return sandbox.DatabaseInfo{}, err
	}
	if info.Views, err = queryViews(ctx, pool); err != nil {
		return sandbox.DatabaseInfo{}, err
	}
	if info.Routines, err = queryRoutines(ctx, pool); err != nil {
		return sandbox.DatabaseInfo{}, err
	}
	if info.Triggers, err = queryTriggers(ctx, pool); err != nil {
		return sandbox.DatabaseInfo{}, err
	}
	return info, nil
}

func queryTables(ctx context.Context, pool dbPool) ([]sandbox.TableInfo, error) {
	rows, err := pool.Query(ctx, sandbox.TablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sandbox.TableInfo
	for rows.Next() {
		var t sandbox.TableInfo
		var raw []byte
		if err := rows.Scan(&t.Name, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &t.JSON); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func queryConstraints(ctx context.Context, pool dbPool) ([]sandbox.ConstraintInfo, error) {
	rows, err := pool.Query(ctx, sandbox.ConstraintsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sandbox.ConstraintInfo
	for rows.Next() {
		var c sandbox.ConstraintInfo
		var raw []byte
		if err := rows.Scan(&c.Table, &raw); err != nil {
			return nil, err
		}
		// ConstraintsQuery emits the check clause under "checkClause".
		var details []struct {
			sandbox.ConstraintDetail
			CheckClause *string `json:"checkClause"`
		}
		if err := json.Unmarshal(raw, &details); err != nil {
			return nil, err
		}
		for _, d := range details {
			d.ConstraintDetail.CheckClause = d.CheckClause
			c.JSON = append(c.JSON, d.ConstraintDetail)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryViews(ctx context.Context, pool dbPool) ([]sandbox.ViewInfo, error) {
	rows, err := pool.Query(ctx, sandbox.ViewsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sandbox.ViewInfo
	for rows.Next() {
		var v sandbox.ViewInfo
		if err := rows.Scan(&v.Table, &v.Definition); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryRoutines(ctx context.Context, pool dbPool) ([]sandbox.RoutineInfo, error) {
	rows, err := pool.Query(ctx, sandbox.RoutinesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sandbox.RoutineInfo
	for rows.Next() {
		var r sandbox.RoutineInfo
		if err := rows.Scan(&r.Name, &r.Type, &r.Definition, &r.Parameters); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryTriggers(ctx context.Context, pool dbPool) ([]sandbox.TriggerInfo, error) {
	rows, err := pool.Query(ctx, sandbox.TriggersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sandbox.TriggerInfo
	for rows.Next() {
		var t sandbox.TriggerInfo
		var raw []byte
		if err := rows.Scan(&t.Name, &t.ObjectTable, &raw, &t.Statement, &t.Orientation, &t.Timing); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &t.JSON); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
